package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthOSAPI/internal/auth"
	"healthOSAPI/internal/testdb"
	"healthOSAPI/internal/user"
	"healthOSAPI/services"
)

func claimsFor(sub, email string) *auth.Claims {
	return &auth.Claims{
		Email:            email,
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
	}
}

func TestResolveUserCreatesThenUpdates(t *testing.T) {
	pool := testdb.Setup(t)
	identity := services.NewIdentityService(pool, "America/Chicago", "es")
	ctx := context.Background()

	first, err := identity.ResolveUser(ctx, claimsFor("u1", "first@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "u1", first.ID)
	assert.Equal(t, "first@example.com", first.Email)
	assert.Equal(t, "first", first.FullName)
	assert.Equal(t, "es", first.Language)
	assert.Equal(t, "America/Chicago", first.Timezone)
	require.NotNil(t, first.LastActiveAt)

	claims := claimsFor("u1", "second@example.com")
	claims.UserMetadata = auth.UserMetadata{FullName: "Second Name", Language: "en"}
	second, err := identity.ResolveUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "u1", second.ID)
	assert.Equal(t, "second@example.com", second.Email)
	assert.Equal(t, "Second Name", second.FullName)
	assert.Equal(t, "en", second.Language)
	assert.Equal(t, "America/Chicago", second.Timezone)

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestResolveUserIgnoresUnknownTimezone(t *testing.T) {
	pool := testdb.Setup(t)
	identity := services.NewIdentityService(pool, "America/Chicago", "es")
	ctx := context.Background()

	claims := claimsFor("tz1", "tz@example.com")
	claims.UserMetadata = auth.UserMetadata{Timezone: "Mars/Olympus_Mons"}
	created, err := identity.ResolveUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", created.Timezone)

	claims.UserMetadata = auth.UserMetadata{Timezone: "Europe/Madrid"}
	updated, err := identity.ResolveUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", updated.Timezone)

	claims.UserMetadata = auth.UserMetadata{Timezone: "Not/A_Zone"}
	kept, err := identity.ResolveUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", kept.Timezone)
}

func TestResolveUserConcurrentFirstContact(t *testing.T) {
	pool := testdb.Setup(t)
	identity := services.NewIdentityService(pool, "America/Chicago", "es")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := identity.ResolveUser(context.Background(), claimsFor("race", "race@example.com"))
			if err == nil && u.ID != "race" {
				t.Errorf("unexpected id %q", u.ID)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestResolveUserEmailCollision(t *testing.T) {
	pool := testdb.Setup(t)
	identity := services.NewIdentityService(pool, "America/Chicago", "es")
	users := services.NewUserService(pool, "America/Chicago", "es")
	ctx := context.Background()

	_, err := users.CreateUser(ctx, &user.CreateUserRequest{Email: "taken@example.com", FullName: "Owner"})
	require.NoError(t, err)

	_, err = identity.ResolveUser(ctx, claimsFor("u2", "taken@example.com"))
	assert.ErrorIs(t, err, services.ErrConflict)
}

func TestResolveUserKeepsDeletedState(t *testing.T) {
	pool := testdb.Setup(t)
	identity := services.NewIdentityService(pool, "America/Chicago", "es")
	users := services.NewUserService(pool, "America/Chicago", "es")
	ctx := context.Background()

	_, err := identity.ResolveUser(ctx, claimsFor("u3", "gone@example.com"))
	require.NoError(t, err)
	require.NoError(t, users.SoftDeleteUser(ctx, "u3"))

	u, err := identity.ResolveUser(ctx, claimsFor("u3", "gone@example.com"))
	require.NoError(t, err)
	assert.True(t, u.IsDeleted())
}
