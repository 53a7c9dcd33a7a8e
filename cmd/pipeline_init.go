package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vcms/internal/extraction"
	"github.com/sells-group/vcms/internal/lock"
	"github.com/sells-group/vcms/internal/monitoring"
	"github.com/sells-group/vcms/internal/pipeline"
	"github.com/sells-group/vcms/internal/store"
	anthropicpkg "github.com/sells-group/vcms/pkg/anthropic"
)

// pipelineEnv holds the store, locker, metrics registry, and orchestrator
// needed by the process and serve commands.
type pipelineEnv struct {
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
	Registry     *prometheus.Registry
	closers      []func() error
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	for i := len(pe.closers) - 1; i >= 0; i-- {
		if err := pe.closers[i](); err != nil {
			zap.L().Warn("close pipeline resource", zap.Error(err))
		}
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "vcms.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initLocker builds the in-flight lock for the configured driver.
func initLocker(ctx context.Context) (lock.Locker, func() error, error) {
	switch cfg.Lock.Driver {
	case "redis":
		l, err := lock.NewRedis(ctx, lock.RedisConfig{
			Addr:     cfg.Lock.RedisAddr,
			Password: cfg.Lock.RedisPassword,
			DB:       cfg.Lock.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		zap.L().Info("redis lock enabled", zap.String("addr", cfg.Lock.RedisAddr))
		return l, l.Close, nil
	default:
		return lock.NewLocal(), func() error { return nil }, nil
	}
}

// initPipeline sets up the store, extraction service, lock, and metrics and
// builds the Orchestrator. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &pipelineEnv{}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env.Store = st
	env.closers = append(env.closers, st.Close)

	var client anthropicpkg.Client
	if cfg.Extraction.Provider != "fixture" {
		client = anthropicpkg.NewClient(cfg.Anthropic.Key)
	}
	svc, err := extraction.NewService(cfg, client)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "init extraction")
	}

	locker, closeLocker, err := initLocker(ctx)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "init lock")
	}
	env.closers = append(env.closers, closeLocker)

	env.Registry = prometheus.NewRegistry()
	env.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	env.Orchestrator = pipeline.New(st, svc,
		pipeline.WithLocker(locker, time.Duration(cfg.Lock.TTLSecs)*time.Second),
		pipeline.WithMetrics(monitoring.NewMetrics(env.Registry)),
		pipeline.WithExtractionTimeout(time.Duration(cfg.Pipeline.ExtractionTimeoutSecs)*time.Second),
		pipeline.WithConcurrency(cfg.Pipeline.BatchConcurrency),
	)

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("provider", cfg.Extraction.Provider),
		zap.String("lock", cfg.Lock.Driver),
	)
	return env, nil
}
