package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rendis/codeflow/internal/api"
	"github.com/rendis/codeflow/internal/chat"
	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/internal/metrics"
	"github.com/rendis/codeflow/internal/rules"
	"github.com/rendis/codeflow/internal/sandbox"
	"github.com/rendis/codeflow/internal/scheduler"
	"github.com/rendis/codeflow/internal/store"
)

// app is the wired set of components shared by serve, mcp and the one-shot
// commands.
type app struct {
	cfg       Config
	logger    *slog.Logger
	rules     *rules.Set
	synth     *flowchart.Synthesizer
	assistant *chat.Assistant
	pool      *sandbox.Pool
	history   store.ConversationLog
	sweeper   *scheduler.Scheduler
	metrics   *metrics.Registry
}

// newApp wires the components described by cfg. withHistory opens the
// conversation log and its retention sweep.
func newApp(ctx context.Context, cfg Config, logger *slog.Logger, withHistory bool) (*app, error) {
	set, err := rules.Load(cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	runner, err := newRunner(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		rules:     set,
		synth:     flowchart.New(flowchart.Config{Rules: set, Logger: logger}),
		assistant: chat.New(chat.Config{Rules: set, Logger: logger}),
		pool:      sandbox.NewPool(runner, cfg.SandboxMaxConcurrent),
		metrics:   metrics.DefaultRegistry(),
	}

	if !withHistory {
		return a, nil
	}

	a.history, err = store.Open(ctx, store.Options{
		Driver: cfg.HistoryDriver,
		DSN:    cfg.HistoryDSN,
		Limit:  cfg.HistoryLimit,
		Logger: logger,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open history: %w", err)
	}

	a.sweeper, err = scheduler.New(a.history, scheduler.Config{
		Spec:      cfg.HistorySweep,
		Retention: cfg.HistoryRetention.Duration,
		Logger:    logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.sweeper.Start(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// newRunner builds the sandbox runner for the configured mode.
func newRunner(cfg Config, logger *slog.Logger) (sandbox.Runner, error) {
	exec := sandbox.Config{Timeout: cfg.ExecTimeout.Duration, MaxOutput: cfg.MaxOutput}
	if cfg.SandboxMode != sandboxProcess {
		return sandbox.NewExecutor(exec, logger), nil
	}
	pr, err := sandbox.NewProcessRunner(sandbox.ProcessConfig{
		Exec:       exec,
		MemoryMB:   cfg.SandboxMemoryMB,
		CPUPercent: cfg.SandboxCPUPercent,
	}, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("create process sandbox: %w", err)
	}
	return pr, nil
}

// apiHandler builds the HTTP handler over the app's components.
func (a *app) apiHandler(cfg Config, logger *slog.Logger) (http.Handler, error) {
	srv, err := api.NewServer(api.Deps{
		Synthesizer: a.synth,
		Runner:      a.pool,
		Assistant:   a.assistant,
		History:     a.history,
		Metrics:     a.metrics,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return nil, err
	}
	return srv.Handler(), nil
}

// withRules returns a copy of the app whose synthesizer and assistant use set.
func (a *app) withRules(set *rules.Set, logger *slog.Logger) *app {
	c := *a
	c.rules = set
	c.logger = logger
	c.synth = flowchart.New(flowchart.Config{Rules: set, Logger: logger})
	c.assistant = chat.New(chat.Config{Rules: set, Logger: logger})
	return &c
}

func (a *app) close() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.pool != nil {
		a.pool.Shutdown()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("close history", "error", err)
		}
	}
}
