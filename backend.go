package director

import (
	"context"
	"sync"
)

// Backend is the inference collaborator. Given a scenario payload it returns the raw model
// output. Calls are synchronous and are expected to run off the consumer goroutine.
//
// An error and an empty string mean the same thing to the rest of the engine: no usable
// output this cycle.
type Backend interface {
	Infer(ctx context.Context, payload string) (string, error)
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, payload string) (string, error)

// Infer calls f.
func (f BackendFunc) Infer(ctx context.Context, payload string) (string, error) {
	return f(ctx, payload)
}

// SerializedBackend wraps a Backend that is not safe for concurrent use. Calls wait on a
// mutex, so several admitted jobs may be active while only one touches the model context.
type SerializedBackend struct {
	mu      sync.Mutex
	backend Backend
}

// Serialize wraps b so that at most one Infer call runs at a time.
// Wrapping an already serialized backend returns it unchanged.
func Serialize(b Backend) Backend {
	if b == nil {
		return nil
	}
	if s, ok := b.(*SerializedBackend); ok {
		return s
	}
	return &SerializedBackend{backend: b}
}

// Infer waits for the model context, then calls the wrapped backend.
// A context cancelled while waiting is reported without calling the backend.
func (s *SerializedBackend) Infer(ctx context.Context, payload string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.backend.Infer(ctx, payload)
}

// Unwrap returns the wrapped backend.
func (s *SerializedBackend) Unwrap() Backend {
	return s.backend
}

// Compile-time check that SerializedBackend implements Backend.
var _ Backend = (*SerializedBackend)(nil)
