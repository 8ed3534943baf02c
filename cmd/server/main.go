// Package main is the entry point for the KidsTube web front-end. It loads
// configuration, connects to Redis (and MariaDB when the access audit is
// on), wires together all plugins, and starts the HTTP server.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kidstube/web/internal/app"
	"github.com/kidstube/web/internal/clock"
	"github.com/kidstube/web/internal/config"
	"github.com/kidstube/web/internal/database"
	"github.com/kidstube/web/internal/plugins/audit"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	setupLogging(cfg)

	slog.Info("starting KidsTube web",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("api", cfg.Backend.URL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Redis ---
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("connected to Redis")

	// --- Access audit (optional) ---
	var db *sql.DB
	auditService := audit.NewDisabledService()
	if cfg.Database.Enabled {
		db, err = database.NewMariaDB(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to MariaDB", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		if err := database.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
			slog.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
		auditService = audit.NewAuditService(audit.NewAuditRepository(db), clock.Real())
		slog.Info("access audit enabled")
	} else {
		slog.Warn("access audit disabled")
	}

	// --- Create Application ---
	application, err := app.New(cfg, db, rdb, auditService)
	if err != nil {
		slog.Error("failed to create application", slog.Any("error", err))
		os.Exit(1)
	}
	application.RegisterRoutes()
	application.RunBackground(ctx)

	// --- Graceful Shutdown ---
	// On SIGINT/SIGTERM drain in-flight requests, then let queued audit
	// writes land before the database closes.
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil {
		// Echo returns http.ErrServerClosed on graceful shutdown, which is expected.
		slog.Info("server stopped", slog.Any("reason", err))
	}
	auditService.Wait()
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation. LOG_LEVEL sets the level in both.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
