package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthOSAPI/internal/auth"
	"healthOSAPI/internal/family"
	"healthOSAPI/internal/habit"
	"healthOSAPI/internal/routine"
	"healthOSAPI/internal/user"
	"healthOSAPI/services"
)

// The token is the subject; unknown subjects fail verification.
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (*auth.Claims, error) {
	if token == "" || token == "bad" {
		return nil, auth.ErrUnauthenticated
	}
	c := &auth.Claims{}
	c.Subject = token
	return c, nil
}

type identities map[string]*user.User

func (ids identities) ResolveUser(_ context.Context, c *auth.Claims) (*user.User, error) {
	if u, ok := ids[c.Subject]; ok {
		return u, nil
	}
	return nil, auth.ErrUnauthenticated
}

type okPinger struct{ err error }

func (p okPinger) Ping(context.Context) error { return p.err }

type fakeUsers struct {
	UserStore
	users identities
}

func (f *fakeUsers) FindUser(_ context.Context, id string, includeDeleted bool) (*user.User, error) {
	u, ok := f.users[id]
	if !ok || (u.IsDeleted() && !includeDeleted) {
		return nil, fmt.Errorf("user %w", services.ErrNotFound)
	}
	return u, nil
}

func (f *fakeUsers) RestoreUser(_ context.Context, id string) (*user.User, error) {
	u := f.users[id]
	u.DeletedAt = nil
	return u, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, req *user.CreateUserRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrInvalidInput, err)
	}
	for _, u := range f.users {
		if u.Email == req.Email {
			return nil, fmt.Errorf("%w: email already registered", services.ErrConflict)
		}
	}
	return &user.User{ID: "new", Email: req.Email, FullName: req.FullName}, nil
}

type fakeHabits struct {
	HabitStore
	habits map[string]*habit.Habit
	logged map[string]bool
}

func (f *fakeHabits) GetHabit(_ context.Context, id string) (*habit.Habit, error) {
	h, ok := f.habits[id]
	if !ok {
		return nil, fmt.Errorf("habit %w", services.ErrNotFound)
	}
	return h, nil
}

func (f *fakeHabits) LogHabit(_ context.Context, habitID string, req *habit.LogHabitRequest) (*habit.Log, error) {
	key := habitID + req.LogDate
	if f.logged[key] {
		return nil, fmt.Errorf("%w: habit already logged for %s", services.ErrConflict, req.LogDate)
	}
	f.logged[key] = true
	return &habit.Log{ID: "log-1", HabitID: habitID, Completed: req.Completed}, nil
}

func (f *fakeHabits) ListLogs(context.Context, string, *time.Time, *time.Time) ([]*habit.Log, error) {
	return []*habit.Log{}, nil
}

type fakeRoutines struct {
	RoutineStore
	itemOwners  map[string]string
	completions map[string]*routine.Completion
	deleted     []string
}

func (f *fakeRoutines) ItemOwner(_ context.Context, id string) (string, error) {
	owner, ok := f.itemOwners[id]
	if !ok {
		return "", fmt.Errorf("routine item %w", services.ErrNotFound)
	}
	return owner, nil
}

func (f *fakeRoutines) GetItem(_ context.Context, id string) (*routine.Item, error) {
	return &routine.Item{ID: id, Name: "Metformin"}, nil
}

func (f *fakeRoutines) GetCompletion(_ context.Context, id string) (*routine.Completion, error) {
	c, ok := f.completions[id]
	if !ok {
		return nil, fmt.Errorf("completion %w", services.ErrNotFound)
	}
	return c, nil
}

func (f *fakeRoutines) DeleteCompletion(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeFamilies struct {
	FamilyStore
	families    map[string]*family.Family
	memberships map[string]family.Role
	added       []string
}

func (f *fakeFamilies) GetFamily(_ context.Context, id string) (*family.Family, error) {
	fam, ok := f.families[id]
	if !ok {
		return nil, fmt.Errorf("family %w", services.ErrNotFound)
	}
	return fam, nil
}

func (f *fakeFamilies) GetMembership(_ context.Context, familyID, userID string) (*family.Membership, error) {
	role, ok := f.memberships[familyID+"/"+userID]
	if !ok {
		return nil, fmt.Errorf("membership %w", services.ErrNotFound)
	}
	return &family.Membership{FamilyID: familyID, UserID: userID, Role: role}, nil
}

func (f *fakeFamilies) AddMember(_ context.Context, familyID, userID string, role family.Role) (*family.Membership, error) {
	f.added = append(f.added, userID)
	return &family.Membership{FamilyID: familyID, UserID: userID, Role: role}, nil
}

type fixture struct {
	router   http.Handler
	families *fakeFamilies
	routines *fakeRoutines
}

func setup(t *testing.T) *fixture {
	t.Helper()
	deletedAt := time.Now()
	ids := identities{
		"alice": {ID: "alice", Email: "alice@example.com"},
		"bob":   {ID: "bob", Email: "bob@example.com"},
		"gone":  {ID: "gone", Email: "gone@example.com", DeletedAt: &deletedAt},
	}

	f := &fixture{
		families: &fakeFamilies{
			families: map[string]*family.Family{"smiths": {ID: "smiths", Name: "Smiths"}},
			memberships: map[string]family.Role{
				"smiths/alice": family.RoleAdmin,
				"smiths/bob":   family.RoleMember,
			},
		},
		routines: &fakeRoutines{
			itemOwners:  map[string]string{"item-a": "alice"},
			completions: map[string]*routine.Completion{"c-a": {ID: "c-a", UserID: "alice"}},
		},
	}
	f.router = NewRouter(RouterConfig{
		Users: &fakeUsers{users: ids},
		Habits: &fakeHabits{
			habits: map[string]*habit.Habit{"h-alice": {ID: "h-alice", UserID: "alice", Name: "Walk"}},
			logged: map[string]bool{},
		},
		Families: f.families,
		Routines: f.routines,
		DB:       okPinger{},
		Verifier: tokenVerifier{},
		Identity: ids,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestOwnershipNotFoundBeforeForbidden(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"own habit", http.MethodGet, "/api/v1/habits/h-alice", "alice", http.StatusOK},
		{"foreign habit", http.MethodGet, "/api/v1/habits/h-alice", "bob", http.StatusForbidden},
		{"missing habit", http.MethodGet, "/api/v1/habits/nope", "bob", http.StatusNotFound},
		{"own item", http.MethodGet, "/api/v1/items/item-a", "alice", http.StatusOK},
		{"foreign item", http.MethodGet, "/api/v1/items/item-a", "bob", http.StatusForbidden},
		{"missing item", http.MethodGet, "/api/v1/items/nope", "alice", http.StatusNotFound},
		{"foreign completion", http.MethodDelete, "/api/v1/completions/c-a", "bob", http.StatusForbidden},
		{"missing completion", http.MethodDelete, "/api/v1/completions/nope", "bob", http.StatusNotFound},
		{"own completion", http.MethodDelete, "/api/v1/completions/c-a", "alice", http.StatusNoContent},
		{"other user profile", http.MethodGet, "/api/v1/users/alice", "bob", http.StatusForbidden},
		{"missing user", http.MethodGet, "/api/v1/users/nope", "bob", http.StatusNotFound},
		{"deleted user is hidden", http.MethodGet, "/api/v1/users/gone", "bob", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, tt.method, tt.path, tt.token, "")
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
	assert.Equal(t, []string{"c-a"}, f.routines.deleted)
}

func TestUnauthenticatedRequests(t *testing.T) {
	f := setup(t)

	for _, token := range []string{"", "bad", "stranger"} {
		rr := f.do(t, http.MethodGet, "/api/v1/habits/h-alice", token, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "token %q", token)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
	}
}

func TestDeletedAccountCanOnlyRestore(t *testing.T) {
	f := setup(t)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/v1/habits/h-alice", "gone", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/users/me", "gone", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/v1/users/alice/restore", "gone", "").Code)

	rr := f.do(t, http.MethodPost, "/api/v1/users/gone/restore", "gone", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var restored user.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &restored))
	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/users/me", "gone", "").Code)
}

func TestErrorMapping(t *testing.T) {
	f := setup(t)

	body := `{"logDate":"2024-01-01","completed":true}`
	assert.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/habits/h-alice/logs", "alice", body).Code)

	rr := f.do(t, http.MethodPost, "/api/v1/habits/h-alice/logs", "alice", body)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "already logged")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/habits/h-alice/logs", "alice", "{").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/habits/h-alice/logs?from=yesterday", "alice", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/habits/h-alice/logs?from=2024-01-01", "alice", "").Code)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/users", "alice", `{"email":"nope","fullName":"X"}`).Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/v1/users", "alice", `{"email":"bob@example.com","fullName":"Bob"}`).Code)
	assert.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/users", "alice", `{"email":"carol@example.com","fullName":"Carol"}`).Code)
}

func TestFamilyMembershipChecks(t *testing.T) {
	f := setup(t)
	add := `{"userId":"carol"}`

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/families/smiths", "bob", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/families/jones", "bob", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/v1/families/smiths/members", "bob", add).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/families/smiths/members", "alice", `{}`).Code)

	rr := f.do(t, http.MethodPost, "/api/v1/families/smiths/members", "alice", add)
	require.Equal(t, http.StatusCreated, rr.Code)
	var m family.Membership
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	assert.Equal(t, family.RoleMember, m.Role)
	assert.Equal(t, []string{"carol"}, f.families.added)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/v1/users/alice/families", "bob", "").Code)
}

func TestHealth(t *testing.T) {
	f := setup(t)
	rr := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	h := NewHealthHandler(okPinger{err: context.DeadlineExceeded})
	rr = httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsRequireCredentials(t *testing.T) {
	f := setup(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/metrics", "", "").Code)
}
