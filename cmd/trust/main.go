package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tendant/device-trust/pkg/config"
	"github.com/tendant/device-trust/pkg/contract"
	"github.com/tendant/device-trust/pkg/customer"
	"github.com/tendant/device-trust/pkg/loginattempts"
	attemptsapi "github.com/tendant/device-trust/pkg/loginattempts/api"
	"github.com/tendant/device-trust/pkg/notification"
	"github.com/tendant/device-trust/pkg/registration"
	registrationapi "github.com/tendant/device-trust/pkg/registration/api"
	"github.com/tendant/device-trust/pkg/trust"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment")
	}

	var cfg config.Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Db.ToDatabaseURL())
	if err != nil {
		slog.Error("Failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	trustRepository := trust.NewPostgresTrustRepository(pool)
	attemptCache := loginattempts.NewRedisAttemptCache(redisClient)

	trustService := trust.NewTrustService(
		trustRepository,
		trust.WithMaxPinTries(cfg.Trust.MaxPinTries),
		trust.WithConflictRetries(cfg.Trust.ConflictRetries),
		trust.WithAttemptCacheInvalidator(loginattempts.NewInvalidator(attemptCache)),
	)

	notifier := notification.NewHTTPClient(cfg.Collaborators.NotificationBaseURL)
	contracts := contract.NewHTTPClient(cfg.Collaborators.ContractBaseURL)
	customers := customer.NewHTTPClient(cfg.Collaborators.CustomerBaseURL)

	dispatcherOptions := registration.DefaultDispatcherOptions()
	dispatcherOptions.QueueSize = cfg.Dispatcher.QueueSize
	dispatcherOptions.Workers = cfg.Dispatcher.Workers
	dispatcher := registration.NewDispatcher(dispatcherOptions)

	registrationService := registration.NewService(trustService, notifier, contracts, customers, dispatcher)
	attemptService := loginattempts.NewService(
		trustRepository,
		attemptCache,
		notifier,
		loginattempts.WithCacheTTL(cfg.AttemptList.CacheTTL()),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Mount("/api/device-management", registrationapi.Handler(
		registrationapi.NewRegistrationHandler(registrationService)))
	r.Mount("/api/login-attempts", attemptsapi.Handler(
		attemptsapi.NewAttemptsHandler(attemptService, cfg.AttemptList.DateFormat)))

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	go func() {
		slog.Info("Starting device-trust service", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	// Drain queued side effects before exiting
	dispatcher.Close()
}
