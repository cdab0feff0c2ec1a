package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-cli/internal/aggregation"
	"github.com/sells-group/catalog-cli/internal/indexation"
	"github.com/sells-group/catalog-cli/internal/monitoring"
	"github.com/sells-group/catalog-cli/internal/resilience"
	"github.com/sells-group/catalog-cli/internal/store"
	"github.com/sells-group/catalog-cli/internal/vertical"
)

// pipelineEnv bundles the wired aggregation pipeline for a command run.
type pipelineEnv struct {
	Store     store.Store
	Verticals *vertical.Service
	Metrics   *monitoring.Collector
	Pool      *indexation.Pool
	Facade    *aggregation.Facade
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "catalog.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline wires store, verticals, metrics, indexation pool and facade.
// The pool's workers are started; Close drains and stops them.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	verticals, err := vertical.NewServiceFromFile(cfg.Verticals.ConfigPath)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "load vertical definitions")
	}

	metrics := monitoring.NewCollector(nil)

	pool := indexation.NewPool(indexation.Config{
		QueueMaxSize:        cfg.Indexation.QueueMaxSize,
		Workers:             cfg.Indexation.Workers,
		BulkPageSize:        cfg.Indexation.BulkPageSize,
		Pause:               time.Duration(cfg.Indexation.PauseSecs) * time.Second,
		MaxBatchesPerSecond: cfg.Indexation.MaxBatchesPerSecond,
	}, st, metrics)
	pool.SetRetry(resilience.FromRetryConfig(
		cfg.Indexation.Retry.MaxAttempts,
		cfg.Indexation.Retry.InitialBackoffMs,
		cfg.Indexation.Retry.MaxBackoffMs,
		cfg.Indexation.Retry.Multiplier,
		cfg.Indexation.Retry.JitterFraction,
	))
	pool.SetBreaker(resilience.FromCircuitConfig(
		cfg.Indexation.Breaker.FailureThreshold,
		cfg.Indexation.Breaker.ResetTimeoutSecs,
	))
	pool.Start(ctx)

	agg := aggregation.NewAggregator(
		aggregation.DefaultServices(verticals, cfg.Aggregation.TrustedSources)...,
	)
	facade := aggregation.NewFacade(st, verticals, agg, pool, metrics)

	return &pipelineEnv{
		Store:     st,
		Verticals: verticals,
		Metrics:   metrics,
		Pool:      pool,
		Facade:    facade,
	}, nil
}

// Close flushes the indexation queue and releases the store.
func (e *pipelineEnv) Close(ctx context.Context) {
	e.Pool.Stop(ctx)
	e.Store.Close() //nolint:errcheck
}
