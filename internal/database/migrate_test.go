package database_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthOSAPI/internal/database"
	"healthOSAPI/internal/testdb"
)

func TestReadMigrationsSortsByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("ignored")},
	}

	migrations, err := database.ReadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "SELECT 1;", migrations[0].SQL)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestReadMigrationsRejectsBadNames(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"no underscore": {"001.sql": {Data: []byte("")}},
		"not a number":  {"abc_init.sql": {Data: []byte("")}},
		"zero version":  {"000_init.sql": {Data: []byte("")}},
		"duplicate": {
			"001_a.sql":  {Data: []byte("")},
			"0001_b.sql": {Data: []byte("")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := database.ReadMigrations(fsys)
			assert.Error(t, err)
		})
	}
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	migrations, err := database.ReadMigrations(database.Migrations())
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS users")
}

func TestMigratorIsIdempotent(t *testing.T) {
	pool := testdb.Setup(t)

	applied, err := database.NewMigrator(pool, database.Migrations()).Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	var count int
	err = pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)
}
