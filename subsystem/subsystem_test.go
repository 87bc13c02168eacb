package subsystem

import (
	"testing"
	"time"

	"github.com/rickchristie/director"
	"github.com/rickchristie/director/internal/tt"
	"github.com/rickchristie/director/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor   = 2 * time.Second
	pollEvery = time.Millisecond
)

const hardenAnswer = `{"schema":"gda.fps.output.v1","intent":"raise pressure","reason":"player is cruising",` +
	`"tool_calls":[{"name":"AdjustAIDifficulty","args":{"aim_spread_level":0,"aim_spread_fine":-0.05,` +
	`"reaction_level":3,"aggression_level":4,"peek_level":2,"duration_s":20}}]}`

func newTestSubsystem(t *testing.T, backend director.Backend) (*Subsystem, *director.MockClock) {
	t.Helper()
	clock := director.NewMockClock(time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.Clock = clock
	s := New(backend, cfg, nil)
	t.Cleanup(s.Close)
	return s, clock
}

// settle ticks until nothing is pending or running and the last results are delivered.
func settle(t *testing.T, s *Subsystem) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.Tick()
		return !s.IsBusy()
	}, waitFor, pollEvery)
	s.Tick()
}

func TestSubsystem_AppliesDecodedDifficulty(t *testing.T) {
	backend := tt.NewGatedBackend().WithResult("scenario", hardenAnswer)
	s, _ := newTestSubsystem(t, backend)
	sub := &tt.RecordingSubscriber{}
	s.Subscribe(sub)

	require.True(t, s.RequestDifficultyUpdate("scenario"))
	settle(t, s)

	want := director.Difficulty{
		AimSpreadLevel:  0,
		AimSpreadFine:   -0.05,
		ReactionLevel:   3,
		AggressionLevel: 4,
		PeekLevel:       2,
		DurationS:       20,
	}
	assert.Equal(t, want, s.Current())
	assert.Equal(t, state.PhaseActive, s.Phase())
	assert.Equal(t, []director.ChangeCause{director.CauseReplay, director.CauseApplied}, sub.Causes())
	assert.Equal(t, "player is cruising", sub.Last().Reason)
}

func TestSubsystem_TimedReversion(t *testing.T) {
	backend := tt.NewGatedBackend().WithResult("scenario", hardenAnswer)
	s, clock := newTestSubsystem(t, backend)

	s.RequestDifficultyUpdate("scenario")
	settle(t, s)

	remaining, ok := s.RevertIn()
	require.True(t, ok)
	assert.Equal(t, 20*time.Second, remaining)

	clock.Advance(19 * time.Second)
	s.Tick()
	assert.NotEqual(t, s.Baseline(), s.Current())

	clock.Advance(time.Second)
	s.Tick()
	assert.Equal(t, s.Baseline(), s.Current())
	assert.Equal(t, state.PhaseIdle, s.Phase())
}

func TestSubsystem_UnusableResultsKeepDifficulty(t *testing.T) {
	tests := []struct {
		name    string
		backend director.Backend
	}{
		{
			name:    "empty output",
			backend: tt.NewGatedBackend().WithResult("scenario", ""),
		},
		{
			name:    "backend error",
			backend: tt.NewGatedBackend().WithError("scenario", tt.ErrBackendDown),
		},
		{
			name:    "malformed output",
			backend: tt.NewGatedBackend().WithResult("scenario", `{"tool_calls":[`),
		},
		{
			name:    "wrong tool",
			backend: tt.NewGatedBackend().WithResult("scenario", `{"tool_calls":[{"name":"Taunt","args":{}}]}`),
		},
		{
			name:    "no backend",
			backend: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestSubsystem(t, tc.backend)
			sub := &tt.RecordingSubscriber{}
			s.Subscribe(sub)

			require.True(t, s.RequestDifficultyUpdate("scenario"))
			settle(t, s)

			assert.Equal(t, director.DefaultBaseline(), s.Current())
			assert.Equal(t, state.PhaseIdle, s.Phase())
			assert.Len(t, sub.Events, 1, "only the replay")
			assert.Equal(t, int64(1), s.Stats().Dispatched)
		})
	}
}

func TestSubsystem_PartialUpdateBuildsOnCurrent(t *testing.T) {
	backend := tt.NewGatedBackend().
		WithResult("first", hardenAnswer).
		WithResult("second", `{"tool_calls":[{"name":"AdjustAIDifficulty","args":{"peek_level":7}}]}`)
	s, _ := newTestSubsystem(t, backend)

	s.RequestDifficultyUpdate("first")
	settle(t, s)
	s.RequestDifficultyUpdate("second")
	settle(t, s)

	got := s.Current()
	assert.Equal(t, 7, got.PeekLevel)
	assert.Equal(t, 4, got.AggressionLevel)
	assert.Equal(t, 20, got.DurationS)
}

func TestSubsystem_RequestInferenceRawResult(t *testing.T) {
	backend := tt.NewGatedBackend().WithResult("ping", "pong")
	s, _ := newTestSubsystem(t, backend)

	var got []string
	require.True(t, s.RequestInference("Barks", "ping", director.PriorityHigh, func(r string) {
		got = append(got, r)
	}))
	settle(t, s)

	assert.Equal(t, []string{"pong"}, got)
	assert.Equal(t, director.DefaultBaseline(), s.Current())
}

func TestSubsystem_CloseDropsLateResults(t *testing.T) {
	backend := tt.NewGatedBackend().WithResult("scenario", hardenAnswer).Hold("scenario")
	s, _ := newTestSubsystem(t, backend)

	s.RequestDifficultyUpdate("scenario")
	require.Eventually(t, func() bool { return backend.Started("scenario") }, waitFor, pollEvery)

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	backend.Release("scenario")
	<-closed

	assert.Equal(t, 1, s.Tick(), "the result is still handed off")
	assert.Equal(t, director.DefaultBaseline(), s.Current(), "but the guarded callback is a no-op")
	assert.False(t, s.RequestDifficultyUpdate("scenario"))
}

func TestSubsystem_ResetDifficulty(t *testing.T) {
	backend := tt.NewGatedBackend().WithResult("scenario", hardenAnswer)
	s, clock := newTestSubsystem(t, backend)

	s.RequestDifficultyUpdate("scenario")
	settle(t, s)

	require.NoError(t, s.ResetDifficulty())
	require.NoError(t, s.ResetDifficulty())
	assert.Equal(t, s.Baseline(), s.Current())

	_, ok := s.RevertIn()
	assert.False(t, ok)

	clock.Advance(time.Minute)
	s.Tick()
	assert.Equal(t, s.Baseline(), s.Current())
}

func TestSubsystem_CustomBaseline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Baseline = director.Difficulty{AimSpreadLevel: 5, ReactionLevel: 5, AggressionLevel: 5, PeekLevel: 5}
	s := New(nil, cfg, nil)
	defer s.Close()

	sub := &tt.RecordingSubscriber{}
	s.Subscribe(sub)

	require.Len(t, sub.Events, 1)
	assert.Equal(t, cfg.Baseline, sub.Last().Difficulty)
	assert.Equal(t, director.CauseReplay, sub.Last().Cause)
}

func TestSubsystem_RequestPriority(t *testing.T) {
	backend := tt.NewGatedBackend().Hold("first")
	cfg := DefaultConfig()
	cfg.MaxConcurrentJobs = 1
	s := New(backend, cfg, nil)
	t.Cleanup(s.Close)

	require.True(t, s.RequestDifficultyUpdate("first"))
	require.Eventually(t, func() bool { return backend.Started("first") }, waitFor, pollEvery)

	require.True(t, s.RequestDifficultyUpdateAt("low", director.PriorityLow))
	require.True(t, s.RequestDifficultyUpdate("normal"))
	require.True(t, s.RequestDifficultyUpdateAt("high", director.PriorityHigh))

	backend.Release("first")
	settle(t, s)

	assert.Equal(t, []string{"first", "high", "normal", "low"}, backend.Calls())
	assert.Equal(t, director.DefaultBaseline(), s.Current())
}
