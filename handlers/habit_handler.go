package handlers

import (
	"context"
	"net/http"
	"time"

	"healthOSAPI/internal/habit"
)

type HabitStore interface {
	CreateHabit(ctx context.Context, userID string, req *habit.CreateHabitRequest) (*habit.Habit, error)
	GetHabit(ctx context.Context, id string) (*habit.Habit, error)
	GetUserHabits(ctx context.Context, userID string, activeOnly bool) ([]*habit.Habit, error)
	UpdateHabit(ctx context.Context, id string, req *habit.UpdateHabitRequest) (*habit.Habit, error)
	DeleteHabit(ctx context.Context, id string) error
	LogHabit(ctx context.Context, habitID string, req *habit.LogHabitRequest) (*habit.Log, error)
	UpdateLog(ctx context.Context, habitID, logID string, req *habit.UpdateLogRequest) (*habit.Log, error)
	DeleteLog(ctx context.Context, habitID, logID string) error
	ListLogs(ctx context.Context, habitID string, from, to *time.Time) ([]*habit.Log, error)
	GetStreak(ctx context.Context, habitID string) (*habit.Streak, error)
}

type HabitHandler struct {
	habitService HabitStore
}

func NewHabitHandler(habitService HabitStore) *HabitHandler {
	return &HabitHandler{
		habitService: habitService,
	}
}

func (h *HabitHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	var req habit.CreateHabitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.habitService.CreateHabit(ctx, me.ID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HabitHandler) ListHabits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	activeOnly, ok := queryBool(w, r, "active")
	if !ok {
		return
	}

	habits, err := h.habitService.GetUserHabits(ctx, me.ID, activeOnly)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, habits)
}

func (h *HabitHandler) GetHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	hb, err := h.ownHabit(ctx, me.ID, pathVar(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, hb)
}

func (h *HabitHandler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownHabit(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req habit.UpdateHabitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.habitService.UpdateHabit(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HabitHandler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownHabit(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.habitService.DeleteHabit(ctx, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HabitHandler) LogHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownHabit(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req habit.LogHabitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	l, err := h.habitService.LogHabit(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, l)
}

func (h *HabitHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
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
	if _, err := h.ownHabit(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	logs, err := h.habitService.ListLogs(ctx, id, from, to)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, logs)
}

func (h *HabitHandler) UpdateLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownHabit(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var req habit.UpdateLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	l, err := h.habitService.UpdateLog(ctx, id, pathVar(r, "logId"), &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, l)
}

func (h *HabitHandler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownHabit(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.habitService.DeleteLog(ctx, id, pathVar(r, "logId")); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HabitHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me, ok := caller(w, r)
	if !ok {
		return
	}

	id := pathVar(r, "id")
	if _, err := h.ownHabit(ctx, me.ID, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	streak, err := h.habitService.GetStreak(ctx, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, streak)
}

func (h *HabitHandler) ownHabit(ctx context.Context, callerID, id string) (*habit.Habit, error) {
	return authorize(ctx, callerID,
		func(ctx context.Context) (*habit.Habit, error) { return h.habitService.GetHabit(ctx, id) },
		func(hb *habit.Habit) string { return hb.UserID },
	)
}
