// main is the entry point of the Institute API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration (YAML file + .env + environment overrides)
//  2. Initialise the logger
//  3. Open the database and run migrations (sqlite or postgres)
//  4. Build the token issuer and schedule the session purge job
//  5. Register all HTTP routes and start the server in a goroutine
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, stop jobs, close DB
//
// RUNNING THE SERVER:
//
//	go run ./cmd/institute-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/institute-api
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

	"github.com/aanand-mishra/institute-api/internal/auth"
	"github.com/aanand-mishra/institute-api/internal/config"
	"github.com/aanand-mishra/institute-api/internal/http/router"
	"github.com/aanand-mishra/institute-api/internal/jobs"
	"github.com/aanand-mishra/institute-api/internal/logger"
	"github.com/aanand-mishra/institute-api/internal/storage/postgres"
	"github.com/aanand-mishra/institute-api/internal/storage/sqldb"
	"github.com/aanand-mishra/institute-api/internal/storage/sqlite"
	"github.com/aanand-mishra/institute-api/web"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// MustLoad exits if anything is wrong; past this line cfg is valid.
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := logger.New(cfg.Env, os.Stdout)
	slog.SetDefault(log)

	log.Info("starting institute-api",
		slog.String("env", cfg.Env),
		slog.String("driver", cfg.Storage.Driver),
	)

	// ── 3. Initialise Storage ─────────────────────────────────────────────
	// Both drivers return the same *sqldb.Store; only the dialect differs.
	store, err := openStore(cfg)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("storage initialised", slog.String("driver", cfg.Storage.Driver))

	// ── 4. Credentials + background jobs ──────────────────────────────────
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	scheduler, err := jobs.NewScheduler(cfg.Auth.PurgeSchedule,
		jobs.NewSessionPurgeJob(store, issuer.TTL(), log.With(slog.String("job", "session_purge"))))
	if err != nil {
		log.Error("invalid purge schedule",
			slog.String("schedule", cfg.Auth.PurgeSchedule),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	scheduler.Start()

	// ── 5. HTTP Server ────────────────────────────────────────────────────
	server := &http.Server{
		Addr: cfg.HTTPServer.Addr,
		Handler: router.New(router.Deps{
			Store:       store,
			Issuer:      issuer,
			Log:         log,
			CORSOrigins: cfg.HTTPServer.CORSOrigins,
			Static:      web.FS(),
		}),

		// Timeouts keep slow clients from holding connections open.
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ListenAndServe blocks, so it runs in its own goroutine and main
	// stays free to wait for the shutdown signal.
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// ── 6. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-done:
		log.Info("shutdown signal received, stopping server...")
	case err := <-serverErr:
		log.Error("server encountered an error", slog.String("error", err.Error()))
		exitCode = 1
	}

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		exitCode = 1
	}

	// Stop returns a context that is done once a running purge finishes.
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
	}

	if err := store.Close(); err != nil {
		log.Error("failed to close storage", slog.String("error", err.Error()))
		exitCode = 1
	}

	log.Info("server stopped")
	os.Exit(exitCode)
}

func openStore(cfg *config.Config) (*sqldb.Store, error) {
	if cfg.Storage.Driver == "postgres" {
		return postgres.New(cfg)
	}
	return sqlite.New(cfg)
}
