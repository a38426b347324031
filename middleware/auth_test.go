package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthOSAPI/internal/auth"
	"healthOSAPI/internal/user"
	"healthOSAPI/services"
)

type fakeVerifier struct {
	tokens map[string]*auth.Claims
}

func (f fakeVerifier) Verify(_ context.Context, token string) (*auth.Claims, error) {
	c, ok := f.tokens[token]
	if !ok {
		return nil, auth.ErrUnauthenticated
	}
	return c, nil
}

type fakeResolver struct {
	users map[string]*user.User
	err   error
}

func (f fakeResolver) ResolveUser(_ context.Context, c *auth.Claims) (*user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[c.Subject], nil
}

func setupAuth(resolverErr error) http.Handler {
	now := time.Now()
	claims := func(sub string) *auth.Claims {
		c := &auth.Claims{}
		c.Subject = sub
		return c
	}
	verifier := fakeVerifier{tokens: map[string]*auth.Claims{
		"good":    claims("u1"),
		"deleted": claims("u2"),
	}}
	resolver := fakeResolver{
		users: map[string]*user.User{
			"u1": {ID: "u1", Email: "a@example.com"},
			"u2": {ID: "u2", Email: "b@example.com", DeletedAt: &now},
		},
		err: resolverErr,
	}
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := GetUserID(r.Context())
		w.Write([]byte(id))
	})
	return Authenticate(verifier, resolver)(RequireActiveUser(final))
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid token", "Bearer good", http.StatusOK, "u1"},
		{"lowercase scheme", "bearer good", http.StatusOK, "u1"},
		{"deleted user", "Bearer deleted", http.StatusForbidden, ""},
	}

	h := setupAuth(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
				assert.Contains(t, rr.Body.String(), `"error"`)
			}
			if tt.body != "" {
				assert.Equal(t, tt.body, rr.Body.String())
			}
		})
	}
}

func TestAuthenticateResolverFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"store failure", errors.New("db down"), http.StatusInternalServerError},
		{"unauthenticated", auth.ErrUnauthenticated, http.StatusUnauthorized},
		{"email taken", fmt.Errorf("%w: email already in use", services.ErrConflict), http.StatusConflict},
		{"bad claims", fmt.Errorf("%w: email is required", services.ErrInvalidInput), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupAuth(tt.err)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer good")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestAuthenticateAllowsDeletedWithoutActiveCheck(t *testing.T) {
	now := time.Now()
	c := &auth.Claims{}
	c.Subject = "u2"
	h := Authenticate(
		fakeVerifier{tokens: map[string]*auth.Claims{"deleted": c}},
		fakeResolver{users: map[string]*user.User{"u2": {ID: "u2", DeletedAt: &now}}},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := GetUser(r.Context())
		require.True(t, ok)
		assert.True(t, u.IsDeleted())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u2/restore", nil)
	req.Header.Set("Authorization", "Bearer deleted")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestGetUserEmptyContext(t *testing.T) {
	_, ok := GetUser(context.Background())
	assert.False(t, ok)
	_, ok = GetUserID(context.Background())
	assert.False(t, ok)
}
