// Package subsystem wires the scheduler, decoder and state manager into the difficulty
// service a game talks to.
//
// Everything except inference runs on the caller's goroutine: requests are enqueued with
// [Subsystem.RequestDifficultyUpdate] and results are decoded and applied inside
// [Subsystem.Tick], which the game loop calls once per frame.
package subsystem

import (
	"io"
	"log/slog"
	"time"

	"github.com/rickchristie/director"
	"github.com/rickchristie/director/decoder"
	"github.com/rickchristie/director/scheduler"
	"github.com/rickchristie/director/state"
	"github.com/rickchristie/director/timer"
)

// ComponentDifficulty is the job id used for difficulty evaluations.
const ComponentDifficulty = "Difficulty"

// Config configures a Subsystem.
type Config struct {
	MaxConcurrentJobs int
	InferenceTimeout  time.Duration

	// Baseline is installed at construction and restored when a timed adjustment ends.
	Baseline director.Difficulty

	// FineLimit bounds decoded AimSpreadFine. Zero or less disables the bound.
	FineLimit float64

	// StrictDecoding rejects model answers whose arguments have the wrong types.
	StrictDecoding bool

	// Clock drives job timestamps and reversion timers. Defaults to the system clock.
	Clock director.Clock
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs: scheduler.DefaultMaxConcurrentJobs,
		Baseline:          director.DefaultBaseline(),
		FineLimit:         director.DefaultFineLimit,
	}
}

// Option customizes a Subsystem beyond Config.
type Option func(*options)

type options struct {
	observer scheduler.Observer
}

// WithObserver reports scheduler activity to o, e.g. a metrics collector.
func WithObserver(o scheduler.Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// Subsystem is the difficulty service.
type Subsystem struct {
	logger    *slog.Logger
	liveness  *director.Liveness
	scheduler *scheduler.Scheduler
	decoder   *decoder.Decoder
	timers    *timer.Manager
	state     *state.Manager
}

// New creates a Subsystem backed by backend and installs cfg.Baseline.
//
// backend is wrapped with director.Serialize, since a model context serves one call at a
// time. A nil backend leaves the subsystem inert: requests are accepted but never change
// the difficulty.
func New(backend director.Backend, cfg Config, logger *slog.Logger, opts ...Option) *Subsystem {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = director.NewSystemClock()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if backend == nil {
		logger.Warn("no inference backend, difficulty requests will complete empty")
	}

	timers := timer.New(cfg.Clock)
	s := &Subsystem{
		logger:   logger,
		liveness: director.NewLiveness(),
		scheduler: scheduler.New(director.Serialize(backend), scheduler.Config{
			MaxConcurrentJobs: cfg.MaxConcurrentJobs,
			InferenceTimeout:  cfg.InferenceTimeout,
			Clock:             cfg.Clock,
			Logger:            logger.With("component", "scheduler"),
			Observer:          o.observer,
		}),
		decoder: decoder.New(
			decoder.WithFineLimit(cfg.FineLimit),
			decoder.WithStrict(cfg.StrictDecoding),
			decoder.WithLogger(logger.With("component", "decoder")),
		),
		timers: timers,
		state:  state.New(timers, logger.With("component", "state")),
	}
	s.state.Initialize(cfg.Baseline)
	return s
}

// RequestInference enqueues scenario for component. onComplete runs inside a later Tick
// with the raw model output, which is empty when inference failed. It never runs after
// Close. Returns false if the request was rejected.
func (s *Subsystem) RequestInference(
	component string,
	scenario string,
	priority director.Priority,
	onComplete func(result string),
) bool {
	return s.scheduler.Enqueue(director.NewJob(component, scenario, priority, s.liveness.Guard(onComplete)))
}

// RequestDifficultyUpdate asks the model to evaluate scenario at normal priority. A usable
// answer is applied during a later Tick; anything else is logged and leaves the difficulty
// unchanged.
func (s *Subsystem) RequestDifficultyUpdate(scenario string) bool {
	return s.RequestDifficultyUpdateAt(scenario, director.PriorityNormal)
}

// RequestDifficultyUpdateAt is RequestDifficultyUpdate with an explicit priority.
func (s *Subsystem) RequestDifficultyUpdateAt(scenario string, priority director.Priority) bool {
	return s.RequestInference(ComponentDifficulty, scenario, priority, s.handleDifficultyResult)
}

func (s *Subsystem) handleDifficultyResult(result string) {
	if result == "" {
		s.logger.Info("inference returned no output, keeping difficulty")
		return
	}

	res, err := s.decoder.Decode(result, s.state.Current())
	if err != nil {
		s.logger.Warn("could not decode model output, keeping difficulty", "error", err)
		return
	}

	s.logger.Info("model proposed difficulty", "intent", res.Intent, "reason", res.Reason)
	if err := s.state.Apply(res.Difficulty, res.Reason); err != nil {
		s.logger.Error("apply difficulty", "error", err)
	}
}

// Tick delivers finished inference results and fires due reversion timers. Call it once
// per frame from the game loop. Returns the number of results delivered.
func (s *Subsystem) Tick() int {
	n := s.scheduler.Pump()
	s.timers.Tick()
	return n
}

// IsBusy reports whether any request is pending or running.
func (s *Subsystem) IsBusy() bool {
	return s.scheduler.IsBusy()
}

// Subscribe registers sub for difficulty changes and immediately sends it the current
// configuration. Call the returned function to unsubscribe.
func (s *Subsystem) Subscribe(sub director.DifficultySubscriber) (unsubscribe func()) {
	return s.state.Subscribe(sub)
}

// Current returns the difficulty in effect.
func (s *Subsystem) Current() director.Difficulty {
	return s.state.Current()
}

// Baseline returns the difficulty restored when an adjustment ends.
func (s *Subsystem) Baseline() director.Difficulty {
	return s.state.Baseline()
}

// Phase returns the state manager's phase.
func (s *Subsystem) Phase() state.Phase {
	return s.state.Phase()
}

// RevertIn returns the time left before the baseline comes back, if a reversion is pending.
func (s *Subsystem) RevertIn() (time.Duration, bool) {
	return s.state.RevertIn()
}

// ResetDifficulty restores the baseline immediately.
func (s *Subsystem) ResetDifficulty() error {
	return s.state.RestoreBaseline()
}

// Stats returns scheduler counters.
func (s *Subsystem) Stats() scheduler.Stats {
	return s.scheduler.Stats()
}

// Close stops accepting requests and waits for running inference to finish. Results that
// arrive afterwards are dropped without touching the difficulty.
func (s *Subsystem) Close() {
	s.liveness.Kill()
	s.scheduler.Close()
}
