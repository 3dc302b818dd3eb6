package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zcox/messagedb-agent/internal/adapter/otelx"
	"github.com/zcox/messagedb-agent/internal/adapter/postgres"
	"github.com/zcox/messagedb-agent/internal/config"
	"github.com/zcox/messagedb-agent/internal/engine"
	"github.com/zcox/messagedb-agent/internal/llm"
	"github.com/zcox/messagedb-agent/internal/logger"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
	"github.com/zcox/messagedb-agent/internal/resilience"
	"github.com/zcox/messagedb-agent/internal/service"
	"github.com/zcox/messagedb-agent/internal/tool"
)

// app bundles the wired runtime shared by the CLI commands.
type app struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	store    eventstore.Store
	registry *tool.Registry
	engine   *engine.Engine
	sessions *service.SessionService

	logCloser    logger.Closer
	otelShutdown otelx.ShutdownFunc
}

// breakered is implemented by LLM adapters that accept a circuit breaker.
type breakered interface {
	SetBreaker(*resilience.Breaker)
}

// newApp wires config, logging, tracing, the store, the model client, the
// tool registry, and the engine. Callers must defer close.
func newApp(ctx context.Context, opts *rootOptions, needsLLM bool) (*app, error) {
	cfg, logCloser, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	otelShutdown, err := otelx.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.MessageDB)
	if err != nil {
		return nil, fmt.Errorf("message db: %w", err)
	}
	store := postgres.NewMessageStore(pool)

	registry := tool.NewRegistry()
	if err := tool.RegisterBuiltins(registry); err != nil {
		pool.Close()
		return nil, err
	}

	var client llm.Client
	if needsLLM {
		client, err = llm.NewClient(cfg.LLM)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("llm: %w", err)
		}
		if b, ok := client.(breakered); ok {
			b.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
		}
	}

	var metrics *otelx.Metrics
	if cfg.Tracing.Enabled {
		if metrics, err = otelx.NewMetrics(); err != nil {
			pool.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	eng := engine.New(store, client, registry, engine.Options{
		Category:         opts.category,
		Version:          opts.version,
		MaxIterations:    cfg.Processing.MaxIterations,
		MaxRetries:       cfg.LLM.MaxRetries,
		AutoApproveTools: cfg.Processing.AutoApproveTools,
		ApprovalTimeout:  cfg.Processing.ApprovalTimeout,
		ApprovalPoll:     cfg.Processing.ApprovalPoll,
		Metrics:          metrics,
	})

	return &app{
		cfg:          cfg,
		pool:         pool,
		store:        store,
		registry:     registry,
		engine:       eng,
		sessions:     service.NewSessionService(store, opts.category, opts.version),
		logCloser:    logCloser,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *app) close(ctx context.Context) {
	a.pool.Close()
	_ = a.otelShutdown(ctx)
	a.logCloser.Close()
}
