// Package tt holds test doubles shared by package tests.
package tt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickchristie/director"
	"github.com/tmc/langchaingo/llms"
)

// -----------------------------------------------------------------------------
// GatedBackend - implements director.Backend with per-payload release gates
// -----------------------------------------------------------------------------

// GatedBackend records every Infer call and can hold selected payloads until released.
// Payloads without a gate return immediately with "result:<payload>".
type GatedBackend struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	calls   []string
	results map[string]string
	errs    map[string]error
	delay   time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	finished    atomic.Int32
}

// NewGatedBackend creates a backend with no gates.
func NewGatedBackend() *GatedBackend {
	return &GatedBackend{
		gates:   make(map[string]chan struct{}),
		results: make(map[string]string),
		errs:    make(map[string]error),
	}
}

// WithDelay makes every call sleep for d before returning.
func (b *GatedBackend) WithDelay(d time.Duration) *GatedBackend {
	b.delay = d
	return b
}

// WithResult makes calls with payload return result instead of the default.
func (b *GatedBackend) WithResult(payload, result string) *GatedBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[payload] = result
	return b
}

// WithError makes calls with payload fail with err.
func (b *GatedBackend) WithError(payload string, err error) *GatedBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[payload] = err
	return b
}

// Hold makes calls with payload block until Release(payload) or context cancellation.
func (b *GatedBackend) Hold(payload string) *GatedBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gates[payload] = make(chan struct{})
	return b
}

// Release unblocks calls held on payload.
func (b *GatedBackend) Release(payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gate, ok := b.gates[payload]; ok {
		close(gate)
		delete(b.gates, payload)
	}
}

// Infer implements director.Backend.
func (b *GatedBackend) Infer(ctx context.Context, payload string) (string, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	defer b.finished.Add(1)
	for {
		cur := b.maxInFlight.Load()
		if n <= cur || b.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	b.mu.Lock()
	b.calls = append(b.calls, payload)
	gate := b.gates[payload]
	result, hasResult := b.results[payload]
	err := b.errs[payload]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if err != nil {
		return "", err
	}
	if hasResult {
		return result, nil
	}
	return "result:" + payload, nil
}

// Calls returns payloads in the order Infer was entered.
func (b *GatedBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Started reports whether Infer has been entered for payload.
func (b *GatedBackend) Started(payload string) bool {
	for _, c := range b.Calls() {
		if c == payload {
			return true
		}
	}
	return false
}

// InFlight returns the number of Infer calls currently running.
func (b *GatedBackend) InFlight() int {
	return int(b.inFlight.Load())
}

// MaxInFlight returns the highest number of simultaneous Infer calls observed.
func (b *GatedBackend) MaxInFlight() int {
	return int(b.maxInFlight.Load())
}

// Finished returns the number of Infer calls that have returned.
func (b *GatedBackend) Finished() int {
	return int(b.finished.Load())
}

// Compile-time check that GatedBackend implements director.Backend.
var _ director.Backend = (*GatedBackend)(nil)

// PanicBackend panics on every call.
type PanicBackend struct{}

// Infer implements director.Backend.
func (PanicBackend) Infer(context.Context, string) (string, error) {
	panic("model context corrupted")
}

// ErrBackendDown is returned by failing test backends.
var ErrBackendDown = errors.New("backend down")

// -----------------------------------------------------------------------------
// RecordingSubscriber - implements director.DifficultySubscriber
// -----------------------------------------------------------------------------

// RecordingSubscriber keeps every event it receives.
type RecordingSubscriber struct {
	Events []*director.DifficultyChangedEvent
}

// OnDifficultyChanged implements director.DifficultySubscriber.
func (r *RecordingSubscriber) OnDifficultyChanged(e *director.DifficultyChangedEvent) {
	r.Events = append(r.Events, e)
}

// Last returns the most recent event, or nil.
func (r *RecordingSubscriber) Last() *director.DifficultyChangedEvent {
	if len(r.Events) == 0 {
		return nil
	}
	return r.Events[len(r.Events)-1]
}

// Causes returns the cause of every recorded event, in order.
func (r *RecordingSubscriber) Causes() []director.ChangeCause {
	out := make([]director.ChangeCause, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Cause
	}
	return out
}

// -----------------------------------------------------------------------------
// MockModel - implements llms.Model
// -----------------------------------------------------------------------------

// MockModel is a configurable llms.Model. Queued responses are returned in order; once
// they run out the last one repeats.
type MockModel struct {
	mu        sync.Mutex
	responses []string
	errors    []error
	callCount int

	// CapturedMessages stores the messages passed to each GenerateContent call.
	CapturedMessages [][]llms.MessageContent

	// CapturedOptions stores the resolved call options of each GenerateContent call.
	CapturedOptions []llms.CallOptions
}

// NewMockModel creates a MockModel with no responses.
func NewMockModel() *MockModel {
	return &MockModel{}
}

// AddResponse queues a response with the given content.
func (m *MockModel) AddResponse(content string) *MockModel {
	m.responses = append(m.responses, content)
	m.errors = append(m.errors, nil)
	return m
}

// AddError queues an error for the next call.
func (m *MockModel) AddError(err error) *MockModel {
	m.responses = append(m.responses, "")
	m.errors = append(m.errors, err)
	return m
}

// CallCount returns the number of times GenerateContent has been called.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// GenerateContent implements llms.Model.
func (m *MockModel) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.callCount
	m.callCount++
	m.CapturedMessages = append(m.CapturedMessages, messages)

	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}
	m.CapturedOptions = append(m.CapturedOptions, opts)

	if len(m.responses) == 0 {
		return nil, fmt.Errorf("mock model: no response queued")
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	if m.errors[idx] != nil {
		return nil, m.errors[idx]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[idx]}},
	}, nil
}

// Call implements llms.Model.
func (m *MockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Compile-time check that MockModel implements llms.Model.
var _ llms.Model = (*MockModel)(nil)
