package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"healthOSAPI/internal/family"
	"healthOSAPI/services"
)

type FamilyStore interface {
	CreateFamily(ctx context.Context, creatorID string, req *family.CreateFamilyRequest) (*family.Family, error)
	GetFamily(ctx context.Context, id string) (*family.Family, error)
	UpdateFamily(ctx context.Context, id string, req *family.UpdateFamilyRequest) (*family.Family, error)
	AddMember(ctx context.Context, familyID, userID string, role family.Role) (*family.Membership, error)
	GetMembership(ctx context.Context, familyID, userID string) (*family.Membership, error)
	GetFamilyMembers(ctx context.Context, familyID string) ([]*family.Member, error)
	GetUserFamilies(ctx context.Context, userID string) ([]*family.UserFamily, error)
	UpdateMemberRole(ctx context.Context, familyID, userID string, role family.Role) (*family.Membership, error)
	RemoveMember(ctx context.Context, familyID, userID string) error
}

type FamilyHandler struct {
	familyService FamilyStore
}

func NewFamilyHandler(familyService FamilyStore) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
	}
}

// CreateFamily creates a family with the path user as its first admin.
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}
	if pathVar(r, "id") != me.ID {
		respondWithError(w, http.StatusForbidden, "Families can only be created for yourself")
		return
	}

	var req family.CreateFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.familyService.CreateFamily(ctx, me.ID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *FamilyHandler) GetUserFamilies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}
	if pathVar(r, "id") != me.ID {
		respondWithError(w, http.StatusForbidden, "You can only list your own families")
		return
	}

	families, err := h.familyService.GetUserFamilies(ctx, me.ID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, families)
}

func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	f, _, err := h.member(ctx, pathVar(r, "id"), me.ID, false)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, f)
}

func (h *FamilyHandler) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, _, err := h.member(ctx, id, me.ID, true); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req family.UpdateFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.familyService.UpdateFamily(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *FamilyHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, _, err := h.member(ctx, id, me.ID, false); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	members, err := h.familyService.GetFamilyMembers(ctx, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, members)
}

func (h *FamilyHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, _, err := h.member(ctx, id, me.ID, true); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req family.AddMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.familyService.AddMember(ctx, id, req.UserID, req.Role)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, m)
}

func (h *FamilyHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, _, err := h.member(ctx, id, me.ID, true); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req family.UpdateMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.familyService.UpdateMemberRole(ctx, id, pathVar(r, "userId"), req.Role)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, m)
}

// RemoveMember lets admins remove anyone and members remove themselves.
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id, target := pathVar(r, "id"), pathVar(r, "userId")
	if _, _, err := h.member(ctx, id, me.ID, target != me.ID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.familyService.RemoveMember(ctx, id, target); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// member checks that the family exists and that userID belongs to it,
// optionally as an admin.
func (h *FamilyHandler) member(ctx context.Context, familyID, userID string, admin bool) (*family.Family, *family.Membership, error) {
	f, err := h.familyService.GetFamily(ctx, familyID)
	if err != nil {
		return nil, nil, err
	}

	m, err := h.familyService.GetMembership(ctx, familyID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: not a member of this family", services.ErrForbidden)
		}
		return nil, nil, err
	}
	if admin && m.Role != family.RoleAdmin {
		return nil, nil, fmt.Errorf("%w: family admin role required", services.ErrForbidden)
	}
	return f, m, nil
}
