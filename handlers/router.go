package handlers

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthOSAPI/middleware"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Users    UserStore
	Families FamilyStore
	Habits   HabitStore
	Routines RoutineStore
	DB       Pinger

	Verifier middleware.TokenVerifier
	Identity middleware.IdentityResolver

	// RateLimiter is optional.
	RateLimiter *middleware.RateLimiter

	MetricsUser string
	MetricsPass string
	EnablePprof bool
}

func NewRouter(cfg RouterConfig) *mux.Router {
	userHandler := NewUserHandler(cfg.Users)
	familyHandler := NewFamilyHandler(cfg.Families)
	habitHandler := NewHabitHandler(cfg.Habits)
	routineHandler := NewRoutineHandler(cfg.Routines)
	healthHandler := NewHealthHandler(cfg.DB)

	r := mux.NewRouter()
	r.Use(middleware.MonitorMiddleware)

	metricsAuth := middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.Handle("/metrics", metricsAuth(promhttp.Handler())).Methods("GET")
	if cfg.EnablePprof {
		debug := r.PathPrefix("/debug/pprof").Subrouter()
		debug.Use(metricsAuth)
		debug.HandleFunc("/cmdline", pprof.Cmdline)
		debug.HandleFunc("/profile", pprof.Profile)
		debug.HandleFunc("/symbol", pprof.Symbol)
		debug.HandleFunc("/trace", pprof.Trace)
		debug.PathPrefix("/").HandlerFunc(pprof.Index)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware)
	}
	authenticate := middleware.Authenticate(cfg.Verifier, cfg.Identity)

	// Reachable by soft-deleted accounts.
	account := api.NewRoute().Subrouter()
	account.Use(authenticate)
	account.HandleFunc("/users/me", userHandler.GetMe).Methods("GET")
	account.HandleFunc("/users/{id}/restore", userHandler.RestoreUser).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(authenticate)
	protected.Use(middleware.RequireActiveUser)

	// Users
	protected.HandleFunc("/users", userHandler.CreateUser).Methods("POST")
	protected.HandleFunc("/users", userHandler.ListUsers).Methods("GET")
	protected.HandleFunc("/users/{id}", userHandler.GetUser).Methods("GET")
	protected.HandleFunc("/users/{id}", userHandler.UpdateUser).Methods("PUT")
	protected.HandleFunc("/users/{id}", userHandler.DeleteUser).Methods("DELETE")

	// Families
	protected.HandleFunc("/users/{id}/families", familyHandler.CreateFamily).Methods("POST")
	protected.HandleFunc("/users/{id}/families", familyHandler.GetUserFamilies).Methods("GET")
	protected.HandleFunc("/families/{id}", familyHandler.GetFamily).Methods("GET")
	protected.HandleFunc("/families/{id}", familyHandler.UpdateFamily).Methods("PUT")
	protected.HandleFunc("/families/{id}/members", familyHandler.GetMembers).Methods("GET")
	protected.HandleFunc("/families/{id}/members", familyHandler.AddMember).Methods("POST")
	protected.HandleFunc("/families/{id}/members/{userId}", familyHandler.UpdateMember).Methods("PUT")
	protected.HandleFunc("/families/{id}/members/{userId}", familyHandler.RemoveMember).Methods("DELETE")

	// Habits
	protected.HandleFunc("/habits", habitHandler.CreateHabit).Methods("POST")
	protected.HandleFunc("/habits", habitHandler.ListHabits).Methods("GET")
	protected.HandleFunc("/habits/{id}", habitHandler.GetHabit).Methods("GET")
	protected.HandleFunc("/habits/{id}", habitHandler.UpdateHabit).Methods("PUT")
	protected.HandleFunc("/habits/{id}", habitHandler.DeleteHabit).Methods("DELETE")
	protected.HandleFunc("/habits/{id}/logs", habitHandler.LogHabit).Methods("POST")
	protected.HandleFunc("/habits/{id}/logs", habitHandler.ListLogs).Methods("GET")
	protected.HandleFunc("/habits/{id}/logs/{logId}", habitHandler.UpdateLog).Methods("PUT")
	protected.HandleFunc("/habits/{id}/logs/{logId}", habitHandler.DeleteLog).Methods("DELETE")
	protected.HandleFunc("/habits/{id}/streak", habitHandler.GetStreak).Methods("GET")

	// Routines
	protected.HandleFunc("/routines", routineHandler.CreateRoutine).Methods("POST")
	protected.HandleFunc("/routines", routineHandler.ListRoutines).Methods("GET")
	protected.HandleFunc("/routines/{id}", routineHandler.GetRoutine).Methods("GET")
	protected.HandleFunc("/routines/{id}", routineHandler.UpdateRoutine).Methods("PUT")
	protected.HandleFunc("/routines/{id}", routineHandler.DeleteRoutine).Methods("DELETE")
	protected.HandleFunc("/routines/{id}/versions", routineHandler.CreateVersion).Methods("POST")
	protected.HandleFunc("/routines/{id}/versions", routineHandler.ListVersions).Methods("GET")
	protected.HandleFunc("/routines/{id}/versions/current", routineHandler.GetCurrentVersion).Methods("GET")
	protected.HandleFunc("/routines/{id}/active-version", routineHandler.SetActiveVersion).Methods("PUT")
	protected.HandleFunc("/routines/{id}/schedule", routineHandler.GetSchedule).Methods("GET")

	protected.HandleFunc("/versions/{id}", routineHandler.GetVersion).Methods("GET")
	protected.HandleFunc("/versions/{id}/cards", routineHandler.CreateCard).Methods("POST")
	protected.HandleFunc("/versions/{id}/cards", routineHandler.ListCards).Methods("GET")
	protected.HandleFunc("/cards/{id}", routineHandler.DeleteCard).Methods("DELETE")
	protected.HandleFunc("/cards/{id}/items", routineHandler.CreateItem).Methods("POST")
	protected.HandleFunc("/cards/{id}/items", routineHandler.ListItems).Methods("GET")
	protected.HandleFunc("/items/{id}", routineHandler.GetItem).Methods("GET")
	protected.HandleFunc("/items/{id}", routineHandler.UpdateItem).Methods("PUT")
	protected.HandleFunc("/items/{id}", routineHandler.DeleteItem).Methods("DELETE")
	protected.HandleFunc("/items/{id}/completions", routineHandler.RecordCompletion).Methods("POST")
	protected.HandleFunc("/items/{id}/completions", routineHandler.ListCompletions).Methods("GET")
	protected.HandleFunc("/completions/{id}", routineHandler.DeleteCompletion).Methods("DELETE")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Route not found")
	})

	return r
}
