package director

import (
	"sync"
	"time"
)

// Clock provides the current time. The scheduler stamps admission times with it and the
// timer manager measures deadlines with it, so tests can drive both with a MockClock.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is the Clock backed by time.Now.
type SystemClock struct{}

// NewSystemClock creates a new SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current system time. The value carries a monotonic reading.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock is a Clock that only moves when told to.
// It is safe for concurrent use because scheduler workers read it.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a MockClock starting at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the current simulated time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// SetTime moves the clock to t.
func (m *MockClock) SetTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (m *MockClock) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Compile-time check that both clocks implement Clock.
var (
	_ Clock = (*SystemClock)(nil)
	_ Clock = (*MockClock)(nil)
)
