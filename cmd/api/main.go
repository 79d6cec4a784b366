// Package main is the entry point for the transportation API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/welfare-transport/backend/internal/config"
	"github.com/welfare-transport/backend/internal/events"
	"github.com/welfare-transport/backend/internal/handler"
	"github.com/welfare-transport/backend/internal/logging"
	"github.com/welfare-transport/backend/internal/repo"
	"github.com/welfare-transport/backend/internal/service"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A .env file is a local-development convenience; its absence is normal.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger, logCloser := logging.New(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Events -----------------------------------------------------------
	opts := []service.Option{
		service.WithTransactor(repo.NewTransactor(pool)),
		service.WithLogger(logger),
	}
	if cfg.RabbitMQURL != "" {
		pub, err := events.Dial(cfg.RabbitMQURL, cfg.EventsExchange, logger)
		if err != nil {
			slog.Error("failed to connect to message broker", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		opts = append(opts, service.WithEvents(pub))
		slog.Info("event publishing enabled", "exchange", cfg.EventsExchange)
	}

	// --- Services ---------------------------------------------------------
	records := repo.NewTripRecordRepo(pool)
	details := repo.NewTripDetailRepo(pool)
	vehicles := repo.NewVehicleRepo(pool)

	srv := handler.NewServer(handler.Services{
		Trips:         service.NewTripRecordService(records, details, vehicles, opts...),
		History:       service.NewHistoryService(records, details),
		Odometer:      service.NewOdometerService(vehicles),
		Consolidation: service.NewConsolidationService(records, details, repo.NewAdvisoryLock(pool, repo.ConsolidationLockKey), opts...),
		DB:            pool,
	}, logger)

	// --- Router -----------------------------------------------------------
	router := handler.NewRouter(srv, handler.RouterConfig{
		Logger:       logger,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		JWTSecret:    cfg.JWTSecret,
	})

	// --- HTTP Server ------------------------------------------------------
	// Consolidation runs inside the request, so writes get more room than reads.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
