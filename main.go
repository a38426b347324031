package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	flag "github.com/spf13/pflag"

	"healthOSAPI/handlers"
	"healthOSAPI/internal/auth"
	"healthOSAPI/internal/config"
	"healthOSAPI/internal/database"
	"healthOSAPI/internal/logger"
	"healthOSAPI/middleware"
	"healthOSAPI/services"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file to load before reading the environment")
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		logger.Fatal("failed to load env file", "path", *envFile, "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.LogJSON}); err != nil {
		logger.Fatal("failed to initialise logger", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbPool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to database", "err", err)
	}
	defer func() {
		logger.Info("closing database connection pool")
		dbPool.Close()
	}()
	logger.Info("connected to database")

	applied, err := database.NewMigrator(dbPool, database.Migrations()).Up(ctx)
	if err != nil {
		logger.Fatal("failed to apply migrations", "err", err)
	}
	logger.Info("migrations up to date", "applied", applied)
	if *migrateOnly {
		return
	}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		JWKSURL:         cfg.JWKSURL(),
		Issuer:          cfg.TokenIssuer(),
		Audience:        auth.Audience,
		RefreshInterval: cfg.JWKSRefreshInterval,
	})
	if err != nil {
		logger.Fatal("failed to initialise token verifier", "jwks", cfg.JWKSURL(), "err", err)
	}
	defer verifier.Close()

	middleware.InitPrometheus()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rateLimiter.Cleanup(ctx, time.Minute)

	router := handlers.NewRouter(handlers.RouterConfig{
		Users:       services.NewUserService(dbPool, cfg.DefaultTimezone, cfg.DefaultLanguage),
		Families:    services.NewFamilyService(dbPool),
		Habits:      services.NewHabitService(dbPool),
		Routines:    services.NewRoutineService(dbPool),
		DB:          dbPool,
		Verifier:    verifier,
		Identity:    services.NewIdentityService(dbPool, cfg.DefaultTimezone, cfg.DefaultLanguage),
		RateLimiter: rateLimiter,
		MetricsUser: cfg.MetricsUser,
		MetricsPass: cfg.MetricsPass,
		EnablePprof: cfg.Debug,
	})

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)
	recovery := gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(recoveryLogger{}),
		gorillaHandlers.PrintRecoveryStack(cfg.Debug),
	)

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      recovery(corsHandler(router)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("error starting server", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}

	logger.Info("server shutdown complete")
}

// recoveryLogger routes recovered panics into the structured logger.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	logger.Error("recovered from panic", "panic", v)
}
