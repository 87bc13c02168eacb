package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rickchristie/director"
	"github.com/rickchristie/director/evaluator"
	"github.com/rickchristie/director/internal/config"
	"github.com/rickchristie/director/internal/logging"
	"github.com/rickchristie/director/internal/metrics"
	"github.com/rickchristie/director/models"
	"github.com/rickchristie/director/subsystem"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// app wires the engine together. Everything except the metrics server belongs to the
// goroutine that calls tick.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
	sub       *subsystem.Subsystem
	eval      *evaluator.Service
	world     *simWorld

	unsubscribe []func()
}

// newApp opens the configured backend and builds the engine around it. A missing local
// model is not fatal; the engine runs inert.
func newApp(cfg config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	backend, err := models.Open(cfg.Backend.BackendConfig(), logger.With("component", "models"))
	switch {
	case errors.Is(err, director.ErrNoModel):
		logger.Warn("no local model found, running without inference", "dir", cfg.Backend.ModelsDir)
		backend = nil
	case err != nil:
		return nil, err
	}

	return assemble(cfg, logger, backend), nil
}

func assemble(cfg config.Config, logger *slog.Logger, backend director.Backend) *app {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)

	sub := subsystem.New(backend, subsystem.Config{
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		InferenceTimeout:  cfg.Scheduler.InferenceTimeout,
		Baseline:          cfg.Baseline,
		FineLimit:         cfg.Decoder.FineLimit,
		StrictDecoding:    cfg.Decoder.Strict,
	}, logger, subsystem.WithObserver(collector))

	world := newSimWorld(uint64(time.Now().UnixNano()))
	a := &app{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		collector: collector,
		sub:       sub,
		world:     world,
		eval: evaluator.New(world, sub, evaluator.Config{
			Interval:     cfg.Evaluator.Interval,
			AutoEvaluate: cfg.Evaluator.AutoEvaluate,
		}, logger.With("component", "evaluator")),
	}

	a.unsubscribe = append(a.unsubscribe,
		sub.Subscribe(collector),
		sub.Subscribe(director.SubscriberFunc(a.logChange)),
	)
	return a
}

func (a *app) logChange(e *director.DifficultyChangedEvent) {
	if e.Cause == director.CauseReplay || e.Diff == "" {
		return
	}
	a.logger.Info("difficulty changed",
		"cause", e.Cause.String(),
		"reason", e.Reason,
		"difficulty", e.Difficulty.String(),
	)
	a.logger.Debug("difficulty diff", "diff", e.Diff)
}

// tick advances the world by delta and runs one engine frame.
func (a *app) tick(delta time.Duration) {
	a.world.Step(delta)
	a.eval.Tick(delta)
	a.sub.Tick()
}

// serve runs the game loop and, when an address is configured, the metrics server until
// ctx is done.
func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.loop(ctx)
	})

	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(a.registry))
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			a.logger.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func (a *app) loop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Loop.TickRate)
	defer ticker.Stop()

	a.logger.Info("game loop started",
		"tick_rate", a.cfg.Loop.TickRate,
		"evaluation_interval", a.eval.Interval(),
		"auto_evaluate", a.eval.AutoEvaluate(),
	)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("game loop stopped", "evaluations", a.eval.Requested())
			return nil
		case now := <-ticker.C:
			a.tick(now.Sub(last))
			last = now
		}
	}
}

// Close unsubscribes the app's own listeners and shuts the engine down.
func (a *app) Close() {
	for _, unsubscribe := range a.unsubscribe {
		unsubscribe()
	}
	a.sub.Close()
}
