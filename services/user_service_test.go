package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthOSAPI/internal/testdb"
	"healthOSAPI/internal/user"
	"healthOSAPI/services"
)

func newUserService(t *testing.T) *services.UserService {
	return services.NewUserService(testdb.Setup(t), "America/Chicago", "es")
}

func TestCreateUserAndDuplicateEmail(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, &user.CreateUserRequest{Email: "alice@example.com", FullName: "Alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, "America/Chicago", alice.Timezone)
	assert.Equal(t, "es", alice.Language)
	assert.True(t, alice.NotificationEnabled)

	_, err = svc.CreateUser(ctx, &user.CreateUserRequest{Email: "alice@example.com", FullName: "Other"})
	assert.ErrorIs(t, err, services.ErrConflict)

	_, err = svc.CreateUser(ctx, &user.CreateUserRequest{Email: "bad", FullName: "Other"})
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestEmailLookupIsCaseSensitive(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, &user.CreateUserRequest{Email: "Case@example.com", FullName: "Case"})
	require.NoError(t, err)

	_, err = svc.GetUserByEmail(ctx, "case@example.com")
	assert.ErrorIs(t, err, services.ErrNotFound)

	got, err := svc.GetUserByEmail(ctx, "Case@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Case", got.FullName)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, &user.CreateUserRequest{Email: "del@example.com", FullName: "Del"})
	require.NoError(t, err)

	_, err = svc.RestoreUser(ctx, u.ID)
	assert.ErrorIs(t, err, services.ErrNotFound, "restoring an active user")

	require.NoError(t, svc.SoftDeleteUser(ctx, u.ID))
	assert.ErrorIs(t, svc.SoftDeleteUser(ctx, u.ID), services.ErrNotFound, "deleting twice")

	_, err = svc.GetUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	found, err := svc.FindUser(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, found.IsDeleted())

	active, err := svc.ListUsers(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.ListUsers(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	restored, err := svc.RestoreUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())

	assert.ErrorIs(t, svc.SoftDeleteUser(ctx, "missing"), services.ErrNotFound)
}

func TestUpdateUserPartial(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, &user.CreateUserRequest{Email: "upd@example.com", FullName: "Before"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, &user.CreateUserRequest{Email: "other@example.com", FullName: "Other"})
	require.NoError(t, err)

	name := "After"
	off := false
	updated, err := svc.UpdateUser(ctx, u.ID, &user.UpdateUserRequest{FullName: &name, NotificationEnabled: &off})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.FullName)
	assert.Equal(t, "upd@example.com", updated.Email)
	assert.False(t, updated.NotificationEnabled)

	email := "other@example.com"
	_, err = svc.UpdateUser(ctx, u.ID, &user.UpdateUserRequest{Email: &email})
	assert.ErrorIs(t, err, services.ErrConflict)

	_, err = svc.UpdateUser(ctx, "missing", &user.UpdateUserRequest{FullName: &name})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAuthenticateWithPassword(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, &user.CreateUserRequest{Email: "pw@example.com", FullName: "Pw", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, &user.CreateUserRequest{Email: "nopw@example.com", FullName: "NoPw"})
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "pw@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "pw@example.com", u.Email)
	require.NotNil(t, u.HashedPassword)
	assert.NotEqual(t, "correct-horse", *u.HashedPassword)

	_, err = svc.Authenticate(ctx, "pw@example.com", "wrong-password")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	_, err = svc.Authenticate(ctx, "nopw@example.com", "anything")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "anything")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}
