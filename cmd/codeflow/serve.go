package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rendis/codeflow/internal/rules"
	"github.com/rendis/codeflow/pkg/mcp"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, e *env, args []string) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	fs := e.newFlagSet("serve")
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "TCP listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := e.logger(cfg)
	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()

	h, err := a.apiHandler(cfg, logger)
	if err != nil {
		return err
	}
	swapper := newHandlerSwapper(h)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	srv := &http.Server{
		Handler:           swapper,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func(current Config) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				current = e.reload(current, a, swapper, logger)
			}
		}
	}(cfg)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("codeflow listening",
			"addr", ln.Addr().String(),
			"sandbox_mode", cfg.SandboxMode,
			"history_driver", cfg.HistoryDriver,
			"version", version,
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// reload re-reads the configuration on SIGHUP and swaps in a rebuilt API
// handler when rules, logging or CORS changed. It returns the configuration
// now in effect.
func (e *env) reload(old Config, a *app, swapper *handlerSwapper, logger *slog.Logger) Config {
	next, err := e.config()
	if err != nil {
		logger.Error("reload configuration", "error", err)
		return old
	}
	d := diffConfigs(old, next)
	if len(d.RestartNeeded) > 0 {
		logger.Warn("configuration changes need a restart", "fields", d.RestartNeeded)
	}
	if !d.ReloadHandler {
		logger.Info("configuration reloaded, nothing to apply")
		return old
	}

	set, err := rules.Load(next.RulesDir)
	if err != nil {
		logger.Error("reload rules", "error", err)
		return old
	}
	newLogger := e.logger(next)
	h, err := a.withRules(set, newLogger).apiHandler(next, newLogger)
	if err != nil {
		logger.Error("rebuild handler", "error", err)
		return old
	}
	swapper.Swap(h)
	newLogger.Info("configuration reloaded", "rules_dir", next.RulesDir, "cors_origins", next.CORSOrigins)

	applied := old
	applied.RulesDir = next.RulesDir
	applied.LogLevel = next.LogLevel
	applied.LogFormat = next.LogFormat
	applied.CORSOrigins = next.CORSOrigins
	return applied
}

func runMCP(ctx context.Context, e *env, args []string) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	fs := e.newFlagSet("mcp")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := e.logger(cfg)
	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := mcp.NewServer(mcp.ServerDeps{
		Synthesizer: a.synth,
		Runner:      a.pool,
		Assistant:   a.assistant,
		History:     a.history,
		Logger:      logger,
		Version:     version,
	})
	if err != nil {
		return err
	}
	logger.Info("codeflow MCP server on stdio", "version", version)
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
