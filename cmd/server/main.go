package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/menupulse/internal/adapter/httpserver"
	"github.com/pscheid92/menupulse/internal/adapter/memory"
	"github.com/pscheid92/menupulse/internal/adapter/metrics"
	"github.com/pscheid92/menupulse/internal/adapter/postgres"
	"github.com/pscheid92/menupulse/internal/app"
	"github.com/pscheid92/menupulse/internal/broadcast"
	"github.com/pscheid92/menupulse/internal/domain"
	"github.com/pscheid92/menupulse/internal/platform/config"
	"github.com/pscheid92/menupulse/internal/platform/logging"
	"github.com/pscheid92/menupulse/internal/platform/retry"
	"github.com/pscheid92/menupulse/internal/platform/version"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type seeder interface {
	SeedIfEmpty(ctx context.Context, catalog []domain.NewDish) (int, error)
}

// store is the wired dish store plus whatever it needs on the way down.
type store struct {
	dishes       domain.DishRepository
	healthChecks []httpserver.HealthCheck
	close        func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupPostgres(cfg *config.Config, registry *prometheus.Registry, clock clockwork.Clock) store {
	storeMetrics := metrics.NewStoreMetrics(registry)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	policy := retry.Policy{
		MaxAttempts:    cfg.DBConnectAttempts,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Clock:          clock,
	}
	pool, err := postgres.ConnectWithRetry(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(storeMetrics), policy)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo := postgres.NewDishRepo(pool, cfg.StoreTxTimeout)
	seedCatalog(ctx, cfg, repo)

	return store{
		dishes: postgres.NewBreakerRepo(repo, postgres.DefaultBreakerConfig(), storeMetrics),
		healthChecks: []httpserver.HealthCheck{
			{Name: httpserver.DatabaseCheckName, Check: repo.Ping},
		},
		close: pool.Close,
	}
}

func setupMemory(cfg *config.Config, clock clockwork.Clock) store {
	slog.Warn("Using in-memory dish store, changes are lost on restart")

	repo := memory.NewDishRepo(clock)
	seedCatalog(context.Background(), cfg, repo)

	return store{dishes: repo, close: func() {}}
}

func seedCatalog(ctx context.Context, cfg *config.Config, s seeder) {
	if !cfg.SeedCatalog {
		return
	}
	n, err := s.SeedIfEmpty(ctx, domain.DefaultCatalog())
	if err != nil {
		slog.Error("Failed to seed catalog", "error", err)
		os.Exit(1)
	}
	if n > 0 {
		slog.Info("Seeded sample catalog", "dishes", n)
	}
}

func runGracefulShutdown(srv *httpserver.Server, hub *broadcast.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"store", cfg.StoreDriver,
		"version", info.Version,
		"commit", info.Commit,
	)

	registry := metrics.NewRegistry(info)

	var st store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		st = setupMemory(cfg, clock)
	default:
		st = setupPostgres(cfg, registry, clock)
	}
	defer st.close()

	hub := broadcast.NewHub(clock, metrics.NewHubMetrics(registry))
	appSvc := app.NewService(st.dishes, hub, clock, metrics.NewSyncMetrics(registry))
	srv := httpserver.NewServer(cfg, appSvc, hub, registry, st.healthChecks, clock)

	done := runGracefulShutdown(srv, hub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
