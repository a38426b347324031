package user

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserState(t *testing.T) {
	u := &User{ID: "u1"}
	assert.Equal(t, Active, u.State())
	assert.False(t, u.IsDeleted())

	now := time.Now()
	u.DeletedAt = &now
	assert.Equal(t, Deleted, u.State())
	assert.True(t, u.IsDeleted())
	assert.Equal(t, "deleted", u.State().String())
}

func TestUserJSONIncludesDeletedFlag(t *testing.T) {
	hash := "secret-hash"
	u := &User{ID: "u1", Email: "ana@example.com", HashedPassword: &hash}

	var body map[string]interface{}
	raw, err := json.Marshal(u)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, false, body["isDeleted"])
	assert.Equal(t, "u1", body["id"])
	assert.NotContains(t, body, "deletedAt")
	assert.NotContains(t, string(raw), "secret-hash")

	now := time.Now()
	u.DeletedAt = &now
	raw, err = json.Marshal(u)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, true, body["isDeleted"])
	assert.Contains(t, body, "deletedAt")
}

func TestCreateUserRequestValidate(t *testing.T) {
	valid := CreateUserRequest{Email: "ana@example.com", FullName: "Ana"}
	assert.NoError(t, valid.Validate())
	valid.Timezone = "Europe/Madrid"
	assert.NoError(t, valid.Validate())

	cases := map[string]CreateUserRequest{
		"bad email":      {Email: "not-an-email", FullName: "Ana"},
		"display email":  {Email: "Ana <ana@example.com>", FullName: "Ana"},
		"empty name":     {Email: "ana@example.com", FullName: "  "},
		"bad language":   {Email: "ana@example.com", FullName: "Ana", Language: "fr"},
		"short password": {Email: "ana@example.com", FullName: "Ana", Password: "abc"},
		"bad timezone":   {Email: "ana@example.com", FullName: "Ana", Timezone: "Mars/Olympus_Mons"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, req.Validate())
		})
	}
}

func TestUpdateUserRequestValidate(t *testing.T) {
	name := "Ana María"
	lang := "en"
	assert.NoError(t, (&UpdateUserRequest{FullName: &name, Language: &lang}).Validate())

	bad := "de"
	assert.Error(t, (&UpdateUserRequest{Language: &bad}).Validate())

	empty := ""
	assert.Error(t, (&UpdateUserRequest{Timezone: &empty}).Validate())

	unknown := "Mars/Olympus_Mons"
	assert.Error(t, (&UpdateUserRequest{Timezone: &unknown}).Validate())
	// Offsets and abbreviations are not zone names.
	offset := "+02:00"
	assert.Error(t, (&UpdateUserRequest{Timezone: &offset}).Validate())

	local := "Local"
	assert.Error(t, (&UpdateUserRequest{Timezone: &local}).Validate())

	madrid := "Europe/Madrid"
	assert.NoError(t, (&UpdateUserRequest{Timezone: &madrid}).Validate())
}
