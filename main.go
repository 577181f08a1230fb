package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/recipe-console/internal/cache"
	"github.com/msomdec/recipe-console/internal/catalog"
	"github.com/msomdec/recipe-console/internal/config"
	"github.com/msomdec/recipe-console/internal/handler"
	"github.com/msomdec/recipe-console/internal/metrics"
	"github.com/msomdec/recipe-console/internal/repository/sqlite"
	"github.com/msomdec/recipe-console/internal/session"
	"github.com/msomdec/recipe-console/internal/upstream"
	"github.com/msomdec/recipe-console/internal/view"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}

	strategy, err := catalog.ParseStrategy(cfg.MutationStrategy)
	if err != nil {
		slog.Error("invalid MUTATION_STRATEGY", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()

	// Session persistence is opt-in: without DATABASE_PATH the login only
	// lives as long as the process.
	sessions := session.New(nil)
	if cfg.DatabasePath != "" {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Migrate(context.Background()); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("database migrations applied")

		sessions = session.New(db.Sessions())
		if err := sessions.Restore(context.Background()); err != nil {
			slog.Error("failed to restore session", "error", err)
			os.Exit(1)
		}
	}

	api := upstream.NewClient(cfg.UpstreamBaseURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		upstream.WithRateLimit(cfg.UpstreamRPS),
		upstream.WithMetrics(collector),
	)

	store := cache.NewStore(
		cache.WithKeepUnused(cfg.CacheKeepUnused),
		cache.WithMetrics(collector),
	)

	svc := catalog.NewService(api, store, sessions, strategy)
	slog.Info("catalog ready", "upstream", cfg.UpstreamBaseURL, "strategy", string(strategy))

	renderer, err := view.New()
	if err != nil {
		slog.Error("parse templates", "error", err)
		os.Exit(1)
	}

	guard := handler.NewGuard(sessions, cfg.JWTSecret, cfg.CookieSecure)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, svc, guard, renderer, collector.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.SecurityHeaders(handler.RequestLogger(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
