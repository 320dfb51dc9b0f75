// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

// Command api is the entry point for the Veranda HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/danhque/veranda/internal/account"
	"github.com/danhque/veranda/internal/api"
	"github.com/danhque/veranda/internal/captcha"
	"github.com/danhque/veranda/internal/notify"
	"github.com/danhque/veranda/internal/platform/config"
	"github.com/danhque/veranda/internal/platform/constants"
	"github.com/danhque/veranda/internal/platform/migration"
	pgstore "github.com/danhque/veranda/internal/platform/postgres"
	redisstore "github.com/danhque/veranda/internal/platform/redis"
	"github.com/danhque/veranda/internal/platform/sec"
	"github.com/danhque/veranda/internal/provider"
	"github.com/danhque/veranda/internal/tenant"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "veranda"))
	slog.SetDefault(log)

	log.Info("[Veranda] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "veranda"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Long-lived context for background middleware (rate limiter cleanup).
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Outbound Services ──────────────────────────────────────────────
	// Email and SMS deliveries run on the background dispatcher so request
	// handlers never block on a gateway.
	mailer := notify.NewMailer(cfg)
	smsSender := notify.NewSmsSender(cfg)
	dispatcher := notify.NewDispatcher(log)
	notifier := notify.NewAccountNotifier(mailer, smsSender, dispatcher, cfg.PublicBaseURL, log)

	captchaClient := captcha.NewClient(cfg.CaptchaVerifyURL, cfg.CaptchaSecret)
	providers := provider.Registry(cfg)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	siteRepository := tenant.NewSiteRepository(pool)

	accountService := account.NewService(
		account.NewUserRepository(pool),
		account.NewSessionRepository(pool),
		account.NewExternalLoginRepository(pool),
		account.NewExternalProfileRepository(rdb),
		account.NewLoginIPRepository(pool),
		account.NewConfirmTokenRepository(rdb),
		account.NewResetTokenRepository(rdb),
		account.NewTwoFactorRepository(rdb),
		jwtSvc,
		captchaClient,
		notifier,
		providers,
	)
	accountHandler := account.NewHandler(accountService)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Account:   accountHandler,
	}

	server := api.NewServer(serverCtx, cfg, log, jwtSvc, siteRepository, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	// Drain queued notification deliveries before the process exits.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer drainCancel()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		log.Error("notification drain error", slog.Any("error", err))
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
