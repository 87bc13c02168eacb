// Package state owns the baseline and current difficulty and tells subscribers about every
// change.
//
// A Manager moves through three phases:
//
//	Uninitialized --Initialize--> Idle --Apply--> Active --timer or RestoreBaseline--> Idle
//
// Apply while Active replaces the configuration and re-arms the reversion timer; it never
// stacks timers. A configuration with DurationS == 0 stays until the next change.
//
// A Manager is driven by a single consumer goroutine. Its reversion timer lives in a
// [timer.Manager] and only fires when the consumer ticks that timer manager.
package state

import (
	"io"
	"log/slog"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rickchristie/director"
	"github.com/rickchristie/director/timer"
)

// Phase is the manager's lifecycle phase.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseIdle
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}

// Manager holds the difficulty configuration. It is not safe for concurrent use.
type Manager struct {
	timers   *timer.Manager
	revert   timer.Handle
	registry *Registry
	logger   *slog.Logger

	phase    Phase
	baseline director.Difficulty
	current  director.Difficulty
}

// New creates an uninitialized Manager whose reversion timer lives in timers.
// A nil timers creates a private timer manager on the system clock; a nil logger discards.
func New(timers *timer.Manager, logger *slog.Logger) *Manager {
	if timers == nil {
		timers = timer.New(nil)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		timers:   timers,
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Initialize installs baseline as both the baseline and the current configuration and
// notifies subscribers. Calling it again replaces the baseline and cancels any pending
// reversion.
func (m *Manager) Initialize(baseline director.Difficulty) {
	previous := m.current
	if m.phase == PhaseUninitialized {
		previous = baseline
	}
	m.timers.Clear(&m.revert)
	m.baseline = baseline
	m.current = baseline
	m.phase = PhaseIdle

	m.logger.Info("difficulty initialized", "difficulty", baseline.String())
	m.broadcast(director.CauseInitialized, previous, "")
}

// Apply makes d the current configuration and notifies subscribers.
//
// If d.DurationS > 0 the baseline comes back after that many seconds; otherwise any
// pending reversion is cancelled and d stays until the next change.
func (m *Manager) Apply(d director.Difficulty, reason string) error {
	if m.phase == PhaseUninitialized {
		return director.ErrNotInitialized
	}

	previous := m.current
	m.current = d
	m.phase = PhaseActive

	if d.DurationS > 0 {
		m.timers.Set(&m.revert, time.Duration(d.DurationS)*time.Second, m.expire)
	} else {
		m.timers.Clear(&m.revert)
	}

	m.logger.Info("difficulty applied",
		"difficulty", d.String(),
		"reason", reason,
		"revert_after_s", d.DurationS,
	)
	m.broadcast(director.CauseApplied, previous, reason)
	return nil
}

// RestoreBaseline cancels any pending reversion, makes the baseline current and notifies
// subscribers. Repeated calls leave the same state; each one notifies.
func (m *Manager) RestoreBaseline() error {
	if m.phase == PhaseUninitialized {
		return director.ErrNotInitialized
	}
	m.restore("reset")
	return nil
}

func (m *Manager) expire() {
	m.restore("duration elapsed")
}

func (m *Manager) restore(trigger string) {
	previous := m.current
	m.timers.Clear(&m.revert)
	m.current = m.baseline
	m.phase = PhaseIdle

	m.logger.Info("difficulty restored to baseline", "trigger", trigger)
	m.broadcast(director.CauseRestored, previous, "")
}

// Subscribe registers sub and, if the manager is initialized, immediately sends it the
// current configuration with CauseReplay. The returned function unsubscribes; calling it
// more than once is harmless.
func (m *Manager) Subscribe(sub director.DifficultySubscriber) (unsubscribe func()) {
	id := m.registry.Subscribe(sub)
	if id == 0 {
		return func() {}
	}

	if m.phase != PhaseUninitialized {
		m.registry.Send(id, &director.DifficultyChangedEvent{
			Difficulty: m.current,
			Previous:   m.current,
			Cause:      director.CauseReplay,
		})
	}

	return func() { m.registry.Unsubscribe(id) }
}

// Current returns the configuration in effect. It is the zero value before Initialize.
func (m *Manager) Current() director.Difficulty {
	return m.current
}

// Baseline returns the configuration restored on expiry or reset.
func (m *Manager) Baseline() director.Difficulty {
	return m.baseline
}

// Phase returns the lifecycle phase.
func (m *Manager) Phase() Phase {
	return m.phase
}

// RevertIn returns the time left before the baseline is restored. It returns false when
// no reversion is pending.
func (m *Manager) RevertIn() (time.Duration, bool) {
	return m.timers.Remaining(m.revert)
}

// Subscribers returns the number of registered subscribers.
func (m *Manager) Subscribers() int {
	return m.registry.Len()
}

func (m *Manager) broadcast(cause director.ChangeCause, previous director.Difficulty, reason string) {
	event := &director.DifficultyChangedEvent{
		Difficulty: m.current,
		Previous:   previous,
		Cause:      cause,
		Reason:     reason,
		Diff:       Diff(previous, m.current),
	}
	if event.Diff != "" {
		m.logger.Debug("difficulty diff", "cause", cause.String(), "diff", event.Diff)
	}
	m.registry.Dispatch(event)
}

// Diff returns a unified diff between two configurations, one field per line. It is empty
// when they are equal.
func Diff(from, to director.Difficulty) string {
	if from == to {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        from.Lines(),
		B:        to.Lines(),
		FromFile: "previous",
		ToFile:   "current",
		Context:  0,
	})
	if err != nil {
		return ""
	}
	return diff
}
