package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/hooklog/internal/config"
	"github.com/akave-ai/hooklog/internal/database"
	"github.com/akave-ai/hooklog/internal/logger"
	"github.com/akave-ai/hooklog/internal/metrics"
	"github.com/akave-ai/hooklog/internal/repository"
	"github.com/akave-ai/hooklog/internal/server"
	"github.com/akave-ai/hooklog/internal/service"
	"github.com/akave-ai/hooklog/internal/storage"
	"github.com/akave-ai/hooklog/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Observability)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// run wires the service and serves until SIGINT or SIGTERM. Deferred
// teardown runs after the server has drained and closed the store: the
// database pool first, then the New Relic agent.
func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	var nrApp *newrelic.Application
	if cfg.Observability.NewRelicEnabled() {
		appName := cfg.Observability.NewRelicAppName
		if appName == "" {
			appName = cfg.Observability.ServiceName
		}
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(appName),
			newrelic.ConfigLicense(cfg.Observability.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
		)
		if err != nil {
			return fmt.Errorf("new relic: %w", err)
		}
		defer nrApp.Shutdown(10 * time.Second)
	}

	var pool *pgxpool.Pool
	if cfg.Database.Configured() {
		if cfg.Database.MigrateOnStart {
			if err := database.RunMigrations(ctx, cfg.Database.URL(), log); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
		}
		pool, err = database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database pool: %w", err)
		}
		defer pool.Close()
	}

	o3, err := storage.NewO3Client(cfg.O3)
	if err != nil {
		return fmt.Errorf("o3 client: %w", err)
	}

	// the server closes the store on shutdown
	st, err := newStore(cfg, pool)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	if err := st.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("backend", cfg.Store.Backend).Msg("store not reachable yet")
	}

	m := metrics.New()
	hub := service.NewHub(m)
	opts := []service.Option{service.WithHub(hub), service.WithMetrics(m)}

	if o3 != nil {
		if err := o3.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Msg("o3 ensure bucket failed; archiving may fail")
		}
		opts = append(opts, service.WithArchiver(o3))
		log.Info().Str("prefix", o3.Prefix()).Msg("archiving cleared logs to o3")
	}

	deps := server.Deps{
		Store:    st,
		Service:  service.NewWebhookLogService(st, log, opts...),
		Hub:      hub,
		Metrics:  m,
		NewRelic: nrApp,
		Archives: o3,
		Logger:   log,
	}
	if pool != nil {
		deps.TestSuites = repository.NewTestSuiteRepository(pool)
	}

	return server.New(cfg, deps).Start(ctx)
}

func newStore(cfg *config.Config, pool *pgxpool.Pool) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		return store.NewPostgres(pool, cfg.Store.MaxEntries), nil
	case config.BackendRedis:
		return store.NewRedis(cfg.Redis.URL, cfg.Redis.Key, cfg.Store.MaxEntries)
	default:
		return store.NewMemory(cfg.Store.MaxEntries), nil
	}
}
