package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"healthOSAPI/internal/logger"
	"healthOSAPI/internal/user"
	"healthOSAPI/middleware"
	"healthOSAPI/services"
	"healthOSAPI/utils"
)

const (
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError translates service sentinels into status codes.
// Unknown errors are logged and reported as a generic 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "You do not have access to this resource")
	case errors.Is(err, services.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
	case errors.Is(err, services.ErrConflict):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// caller returns the authenticated user or writes a 401.
func caller(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	u, ok := middleware.GetUser(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return nil, false
	}
	return u, true
}

// authorize loads a resource and checks that callerID owns it. A missing
// resource wins over a foreign one.
func authorize[T any](ctx context.Context, callerID string, load func(context.Context) (T, error), owner func(T) string) (T, error) {
	res, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if owner(res) != callerID {
		var zero T
		return zero, fmt.Errorf("%w: owned by another user", services.ErrForbidden)
	}
	return res, nil
}

// ownerID is the owner func for loaders that already return the owner's id.
func ownerID(id string) string { return id }

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func queryDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	date, err := utils.ParseOptionalDate(&raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Query parameter '%s' must be a YYYY-MM-DD date", name))
		return nil, false
	}
	return date, true
}

func queryBool(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Query parameter '%s' must be a boolean", name))
		return false, false
	}
	return v, true
}
