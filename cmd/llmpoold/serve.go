package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"llmpoold/internal/backend"
	"llmpoold/internal/config"
	"llmpoold/internal/eventbus"
	"llmpoold/internal/httpapi"
	"llmpoold/internal/pool"
	"llmpoold/internal/registry"
)

const (
	shutdownTimeout = 5 * time.Second
	drainTimeout    = 30 * time.Second
)

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// newPool builds the pool described by cfg around reg.
func newPool(cfg config.Config, reg *backend.Registry, logger zerolog.Logger, pub pool.EventPublisher) *pool.Pool {
	strategy := pool.ThreadStrategy()
	if cfg.Strategy == "process" {
		strategy = pool.ProcessStrategy(pool.ProcessOptions{
			Command: cfg.WorkerCommand,
			Args:    cfg.WorkerArgs,
			Env:     []string{envPrefix + "LOG_LEVEL=" + cfg.LogLevel},
		})
	}
	return pool.NewWithConfig(pool.Config{
		Spawn:         reg.Spawn,
		Strategy:      strategy,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       millis(cfg.MaxWaitMS),
		StartTimeout:  millis(cfg.StartTimeoutMS),
		StopTimeout:   millis(cfg.StopTimeoutMS),
		Logger:        logger,
		Publisher:     pub,
	})
}

// registerDefinitions registers every worker definition in dir and starts the
// ones marked autostart. Start failures are logged and leave the worker
// registered but stopped.
func registerDefinitions(ctx context.Context, p *pool.Pool, dir string, logger zerolog.Logger) (int, error) {
	specs, err := registry.LoadDir(dir)
	if err != nil {
		return 0, err
	}
	for _, spec := range specs {
		id := p.Register(pool.ConfigOf(spec))
		logger.Info().Str("worker", string(id)).Str("name", spec.Name).Str("backend", spec.Backend).Msg("worker registered from definition")
		if !spec.Autostart {
			continue
		}
		if err := p.Start(ctx, id); err != nil {
			logger.Error().Err(err).Str("worker", string(id)).Str("name", spec.Name).Msg("autostart failed")
		}
	}
	return len(specs), nil
}

// runServe runs the daemon until ctx is canceled.
func runServe(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	httpapi.SetLogger(logger)

	shutdownTracing, err := setupTracing(cfg.TraceStdout, os.Stdout)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	var pub pool.EventPublisher
	if cfg.NATSURL != "" {
		np, err := eventbus.Connect(eventbus.Config{URL: cfg.NATSURL, Prefix: cfg.NATSSubject, Name: "llmpoold", Logger: logger})
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer func() { _ = np.Close() }()
		pub = np
		logger.Info().Str("url", cfg.NATSURL).Str("subject", cfg.NATSSubject).Msg("publishing lifecycle events")
	}

	p := newPool(cfg, backend.Default(), logger, pub)
	if cfg.WorkersDir != "" {
		n, err := registerDefinitions(ctx, p, cfg.WorkersDir, logger)
		if err != nil {
			return fmt.Errorf("load worker definitions: %w", err)
		}
		logger.Info().Int("count", n).Str("dir", cfg.WorkersDir).Msg("worker definitions loaded")
	}

	httpapi.SetGenerateTimeout(millis(cfg.GenerateTimeoutMS))
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins, nil, nil)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(p), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("strategy", p.StrategyName()).Msg("llmpoold listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("server error")
	}

	logger.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	cancelBase()
	dctx, dcancel := context.WithTimeout(context.Background(), drainTimeout)
	defer dcancel()
	if err := p.Close(dctx); err != nil {
		logger.Error().Err(err).Msg("stopping workers")
		if serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}
