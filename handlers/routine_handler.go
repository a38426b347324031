package handlers

import (
	"context"
	"net/http"
	"time"

	"healthOSAPI/internal/routine"
)

type RoutineStore interface {
	CreateRoutine(ctx context.Context, userID string, req *routine.CreateRoutineRequest) (*routine.Routine, error)
	GetRoutine(ctx context.Context, id string) (*routine.Routine, error)
	GetUserRoutines(ctx context.Context, userID string) ([]*routine.Routine, error)
	UpdateRoutine(ctx context.Context, id string, req *routine.UpdateRoutineRequest) (*routine.Routine, error)
	DeleteRoutine(ctx context.Context, id string) error

	CreateVersion(ctx context.Context, routineID, createdBy string, req *routine.CreateVersionRequest) (*routine.Version, error)
	ListVersions(ctx context.Context, routineID string) ([]*routine.Version, error)
	GetVersion(ctx context.Context, id string) (*routine.Version, error)
	CurrentVersion(ctx context.Context, routineID string, date *time.Time) (*routine.Version, error)
	SetActiveVersion(ctx context.Context, routineID, versionID string) (*routine.Routine, error)
	VersionOwner(ctx context.Context, versionID string) (string, error)

	CreateCard(ctx context.Context, versionID string, req *routine.CreateCardRequest) (*routine.Card, error)
	ListCards(ctx context.Context, versionID string) ([]*routine.Card, error)
	DeleteCard(ctx context.Context, id string) error
	CardOwner(ctx context.Context, cardID string) (string, error)

	CreateItem(ctx context.Context, cardID string, req *routine.CreateItemRequest) (*routine.Item, error)
	GetItem(ctx context.Context, id string) (*routine.Item, error)
	ListItems(ctx context.Context, cardID string) ([]*routine.Item, error)
	UpdateItem(ctx context.Context, id string, req *routine.UpdateItemRequest) (*routine.Item, error)
	DeleteItem(ctx context.Context, id string) error
	ItemOwner(ctx context.Context, itemID string) (string, error)

	Schedule(ctx context.Context, routineID string, date *time.Time) (*routine.Schedule, error)

	RecordCompletion(ctx context.Context, userID, itemID string, req *routine.RecordCompletionRequest) (*routine.Completion, error)
	ListCompletions(ctx context.Context, userID, itemID string, from, to *time.Time) ([]*routine.Completion, error)
	GetCompletion(ctx context.Context, id string) (*routine.Completion, error)
	DeleteCompletion(ctx context.Context, id string) error
}

type RoutineHandler struct {
	routineService RoutineStore
}

func NewRoutineHandler(routineService RoutineStore) *RoutineHandler {
	return &RoutineHandler{
		routineService: routineService,
	}
}

// ----------------------------------------------------------------------------
// Routines
// ----------------------------------------------------------------------------

func (h *RoutineHandler) CreateRoutine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	var req routine.CreateRoutineRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.routineService.CreateRoutine(ctx, me.ID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *RoutineHandler) ListRoutines(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	routines, err := h.routineService.GetUserRoutines(ctx, me.ID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, routines)
}

func (h *RoutineHandler) GetRoutine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	rt, err := h.ownRoutine(ctx, me.ID, pathVar(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rt)
}

func (h *RoutineHandler) UpdateRoutine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownRoutine(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req routine.UpdateRoutineRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.routineService.UpdateRoutine(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *RoutineHandler) DeleteRoutine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownRoutine(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.routineService.DeleteRoutine(ctx, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RoutineHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownRoutine(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	schedule, err := h.routineService.Schedule(ctx, id, date)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, schedule)
}

// ----------------------------------------------------------------------------
// Versions
// ----------------------------------------------------------------------------

func (h *RoutineHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownRoutine(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req routine.CreateVersionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.routineService.CreateVersion(ctx, id, me.ID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, v)
}

func (h *RoutineHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownRoutine(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	versions, err := h.routineService.ListVersions(ctx, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, versions)
}

func (h *RoutineHandler) GetCurrentVersion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownRoutine(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	v, err := h.routineService.CurrentVersion(ctx, id, date)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, v)
}

func (h *RoutineHandler) SetActiveVersion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownRoutine(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req routine.SetActiveVersionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.VersionID == "" {
		respondWithError(w, http.StatusBadRequest, "versionId is required")
		return
	}

	rt, err := h.routineService.SetActiveVersion(ctx, id, req.VersionID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rt)
}

func (h *RoutineHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.VersionOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	v, err := h.routineService.GetVersion(ctx, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, v)
}

// ----------------------------------------------------------------------------
// Cards
// ----------------------------------------------------------------------------

func (h *RoutineHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.VersionOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req routine.CreateCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	card, err := h.routineService.CreateCard(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, card)
}

func (h *RoutineHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.VersionOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	cards, err := h.routineService.ListCards(ctx, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, cards)
}

func (h *RoutineHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.CardOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.routineService.DeleteCard(ctx, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ----------------------------------------------------------------------------
// Items
// ----------------------------------------------------------------------------

func (h *RoutineHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.CardOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req routine.CreateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.routineService.CreateItem(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, item)
}

func (h *RoutineHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.CardOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	items, err := h.routineService.ListItems(ctx, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

func (h *RoutineHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.ItemOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	item, err := h.routineService.GetItem(ctx, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, item)
}

func (h *RoutineHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.ItemOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req routine.UpdateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.routineService.UpdateItem(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, item)
}

func (h *RoutineHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.ItemOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.routineService.DeleteItem(ctx, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ----------------------------------------------------------------------------
// Completions
// ----------------------------------------------------------------------------

func (h *RoutineHandler) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.ItemOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req routine.RecordCompletionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.routineService.RecordCompletion(ctx, me.ID, id, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

func (h *RoutineHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	from, ok := queryDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to")
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if err := h.owns(ctx, me.ID, id, h.routineService.ItemOwner); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	completions, err := h.routineService.ListCompletions(ctx, me.ID, id, from, to)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, completions)
}

func (h *RoutineHandler) DeleteCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	_, err := authorize(ctx, me.ID,
		func(ctx context.Context) (*routine.Completion, error) { return h.routineService.GetCompletion(ctx, id) },
		func(c *routine.Completion) string { return c.UserID },
	)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.routineService.DeleteCompletion(ctx, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ----------------------------------------------------------------------------
// Ownership
// ----------------------------------------------------------------------------

func (h *RoutineHandler) ownRoutine(ctx context.Context, callerID, id string) (*routine.Routine, error) {
	return authorize(ctx, callerID,
		func(ctx context.Context) (*routine.Routine, error) { return h.routineService.GetRoutine(ctx, id) },
		func(rt *routine.Routine) string { return rt.UserID },
	)
}

// owns resolves the routine owner of a nested resource.
func (h *RoutineHandler) owns(ctx context.Context, callerID, id string, owner func(context.Context, string) (string, error)) error {
	_, err := authorize(ctx, callerID,
		func(ctx context.Context) (string, error) { return owner(ctx, id) },
		ownerID,
	)
	return err
}
