package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/insights"
	"github.com/sells-group/coverage-cli/internal/monitoring"
	"github.com/sells-group/coverage-cli/internal/store"
	"github.com/sells-group/coverage-cli/pkg/anthropic"
)

// appEnv holds the wired services shared by commands.
type appEnv struct {
	Store    store.Store
	Analysis *analysis.Service
	Insights *insights.Service
	Metrics  *monitoring.Metrics

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.New(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

// initEnv opens and migrates the store and wires the services. Metrics are
// registered against reg; pass a fresh registry for one-shot commands.
func initEnv(ctx context.Context, reg prometheus.Registerer) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &appEnv{Store: st, closers: []func() error{st.Close}}

	if err := st.Migrate(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	m, err := monitoring.NewMetrics(reg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Metrics = m
	env.Analysis = analysis.NewService(st, cfg, m)

	var client anthropic.Client
	if cfg.Anthropic.Key != "" {
		client = anthropic.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Debug("COVERAGE_ANTHROPIC_KEY not set, AI insights disabled")
	}

	gen := insights.NewGenerator(client, cfg.Anthropic,
		insights.WithMetrics(m),
		insights.WithCache(env.insightCache(ctx), time.Duration(cfg.Insights.CacheTTLHours)*time.Hour),
	)
	env.Insights = insights.NewService(gen, env.Analysis, st)

	return env, nil
}

// insightCache prefers Redis when configured and reachable, otherwise the
// store-backed cache.
func (e *appEnv) insightCache(ctx context.Context) insights.Cache {
	if cfg.Redis.Addr == "" {
		return insights.NewStoreCache(e.Store)
	}
	rc, err := insights.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zap.L().Warn("redis unavailable, using store cache",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err),
		)
		return insights.NewStoreCache(e.Store)
	}
	e.closers = append(e.closers, rc.Close)
	zap.L().Info("insight cache: redis", zap.String("addr", cfg.Redis.Addr))
	return rc
}
