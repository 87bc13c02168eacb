// Package timer provides cancellable one-shot timers that fire on the caller's goroutine.
//
// Timers never fire on their own. The owner calls [Manager.Tick] from its loop and every
// timer whose deadline has passed runs there, in deadline order. Time comes from a
// [director.Clock], so tests drive timers with a [director.MockClock].
//
// A Manager is not safe for concurrent use; it belongs to the consumer goroutine.
package timer

import (
	"sort"
	"time"

	"github.com/rickchristie/director"
)

// Handle identifies an armed timer. The zero Handle is inactive.
type Handle struct {
	id uint64
}

// Valid reports whether the handle was ever bound to a timer. A valid handle may refer to
// a timer that has since fired or been cleared; use Manager.IsActive for that.
func (h Handle) Valid() bool {
	return h.id != 0
}

type entry struct {
	id       uint64
	deadline time.Time
	fn       func()
}

// Manager owns a set of timers keyed by Handle.
type Manager struct {
	clock  director.Clock
	nextID uint64
	timers map[uint64]*entry
}

// New creates a Manager. A nil clock uses the system clock.
func New(clock director.Clock) *Manager {
	if clock == nil {
		clock = director.NewSystemClock()
	}
	return &Manager{
		clock:  clock,
		timers: make(map[uint64]*entry),
	}
}

// Set clears any timer bound to h and arms a new one that runs fn after delay.
// A non-positive delay fires on the next Tick.
func (m *Manager) Set(h *Handle, delay time.Duration, fn func()) {
	m.Clear(h)
	m.nextID++
	m.timers[m.nextID] = &entry{
		id:       m.nextID,
		deadline: m.clock.Now().Add(max(0, delay)),
		fn:       fn,
	}
	h.id = m.nextID
}

// Clear cancels the timer bound to h, if any, and resets h.
func (m *Manager) Clear(h *Handle) {
	if h == nil || h.id == 0 {
		return
	}
	delete(m.timers, h.id)
	h.id = 0
}

// IsActive reports whether h refers to a timer that has not fired or been cleared.
func (m *Manager) IsActive(h Handle) bool {
	_, ok := m.timers[h.id]
	return ok
}

// Remaining returns how long until h fires. It returns false for inactive handles.
func (m *Manager) Remaining(h Handle) (time.Duration, bool) {
	e, ok := m.timers[h.id]
	if !ok {
		return 0, false
	}
	return max(0, e.deadline.Sub(m.clock.Now())), true
}

// Len returns the number of armed timers.
func (m *Manager) Len() int {
	return len(m.timers)
}

// Tick fires every due timer, earliest deadline first, and returns how many fired.
//
// Callbacks may arm or clear timers. Timers armed during Tick wait for the next call; a
// due timer cleared by an earlier callback in the same Tick does not fire.
func (m *Manager) Tick() int {
	now := m.clock.Now()

	var due []*entry
	for _, e := range m.timers {
		if !e.deadline.After(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].deadline.Equal(due[j].deadline) {
			return due[i].deadline.Before(due[j].deadline)
		}
		return due[i].id < due[j].id
	})

	fired := 0
	for _, e := range due {
		if _, ok := m.timers[e.id]; !ok {
			continue
		}
		delete(m.timers, e.id)
		fired++
		if e.fn != nil {
			e.fn()
		}
	}
	return fired
}
