package handlers

import (
	"context"
	"net/http"

	"healthOSAPI/internal/user"
)

type UserStore interface {
	CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error)
	FindUser(ctx context.Context, id string, includeDeleted bool) (*user.User, error)
	ListUsers(ctx context.Context, includeDeleted bool) ([]*user.User, error)
	UpdateUser(ctx context.Context, id string, req *user.UpdateUserRequest) (*user.User, error)
	SoftDeleteUser(ctx context.Context, id string) error
	RestoreUser(ctx context.Context, id string) (*user.User, error)
}

type UserHandler struct {
	userService UserStore
}

func NewUserHandler(userService UserStore) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	me, ok := caller(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, me)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := caller(w, r); !ok {
		return
	}

	var req user.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.userService.CreateUser(ctx, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := caller(w, r); !ok {
		return
	}

	includeDeleted, ok := queryBool(w, r, "include_deleted")
	if !ok {
		return
	}

	users, err := h.userService.ListUsers(ctx, includeDeleted)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	u, err := h.ownUser(ctx, me.ID, pathVar(r, "id"), false)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownUser(ctx, me.ID, id, false); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req user.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.userService.UpdateUser(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownUser(ctx, me.ID, id, false); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.userService.SoftDeleteUser(ctx, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RestoreUser is reachable by soft-deleted callers.
func (h *UserHandler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownUser(ctx, me.ID, id, true); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	restored, err := h.userService.RestoreUser(ctx, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, restored)
}

func (h *UserHandler) ownUser(ctx context.Context, callerID, id string, includeDeleted bool) (*user.User, error) {
	return authorize(ctx, callerID,
		func(ctx context.Context) (*user.User, error) { return h.userService.FindUser(ctx, id, includeDeleted) },
		func(u *user.User) string { return u.ID },
	)
}
