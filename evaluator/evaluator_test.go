package evaluator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rickchristie/director"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorld struct {
	hp        float64
	hasPlayer bool
	enemies   int
	distances []float64
}

func (w *fakeWorld) PlayerHealth() (float64, bool) { return w.hp, w.hasPlayer }
func (w *fakeWorld) EnemyCount() int               { return w.enemies }
func (w *fakeWorld) EnemyDistances() []float64     { return w.distances }

type fakeRequester struct {
	scenarios  []string
	priorities []director.Priority
	reject     bool
}

func (r *fakeRequester) RequestDifficultyUpdateAt(scenario string, priority director.Priority) bool {
	if r.reject {
		return false
	}
	r.scenarios = append(r.scenarios, scenario)
	r.priorities = append(r.priorities, priority)
	return true
}

func TestBuildScenario(t *testing.T) {
	tests := []struct {
		name  string
		world World
		want  string
	}{
		{
			name:  "player with enemies",
			world: &fakeWorld{hp: 0.42, hasPlayer: true, enemies: 3, distances: []float64{10, 20, 33}},
			want:  `{"schema":"gda.fps.input.v1","player":{"hp":0.420},"world":{"enemy_count":3,"avg_enemy_distance":21.0}}`,
		},
		{
			name:  "no player",
			world: &fakeWorld{enemies: 2},
			want:  `{"schema":"gda.fps.input.v1","player":{"hp":1.000},"world":{"enemy_count":2,"avg_enemy_distance":0.0}}`,
		},
		{
			name:  "no enemies",
			world: &fakeWorld{hp: 100, hasPlayer: true},
			want:  `{"schema":"gda.fps.input.v1","player":{"hp":100.000},"world":{"enemy_count":0,"avg_enemy_distance":0.0}}`,
		},
		{
			name:  "no world",
			world: nil,
			want:  `{"schema":"gda.fps.input.v1","player":{"hp":1.000},"world":{"enemy_count":0,"avg_enemy_distance":0.0}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildScenario(tc.world).JSON()
			assert.Equal(t, tc.want, got)
			assert.True(t, json.Valid([]byte(got)))
		})
	}
}

func TestService_TickEvaluatesOnInterval(t *testing.T) {
	req := &fakeRequester{}
	s := New(&fakeWorld{hp: 1, hasPlayer: true}, req, Config{Interval: 10 * time.Second, AutoEvaluate: true}, nil)

	for range 9 {
		assert.False(t, s.Tick(time.Second))
	}
	assert.True(t, s.Tick(time.Second))
	assert.Len(t, req.scenarios, 1)

	// Accumulator restarts after an evaluation.
	assert.False(t, s.Tick(9*time.Second))
	assert.True(t, s.Tick(time.Second))
	assert.Equal(t, 2, s.Requested())
}

func TestService_AutoEvaluateOff(t *testing.T) {
	req := &fakeRequester{}
	s := New(&fakeWorld{}, req, Config{Interval: time.Second}, nil)

	assert.False(t, s.AutoEvaluate())
	assert.False(t, s.Tick(time.Hour))
	assert.Empty(t, req.scenarios)

	s.SetAutoEvaluate(true)
	assert.True(t, s.Tick(time.Second))
}

func TestService_EvaluateResetsInterval(t *testing.T) {
	req := &fakeRequester{}
	s := New(&fakeWorld{}, req, DefaultConfig(), nil)
	assert.Equal(t, DefaultInterval, s.Interval())

	s.Tick(9 * time.Second)
	require.True(t, s.Evaluate())
	assert.False(t, s.Tick(9*time.Second))
	assert.Equal(t, req.scenarios[0], s.LastScenario())
}

func TestService_EvaluatePriority(t *testing.T) {
	req := &fakeRequester{}
	s := New(&fakeWorld{}, req, Config{Interval: time.Second, AutoEvaluate: true}, nil)

	require.True(t, s.Evaluate())
	require.True(t, s.EvaluateAt(director.PriorityHigh))
	require.True(t, s.Tick(time.Second))

	assert.Equal(t, []director.Priority{
		director.PriorityNormal,
		director.PriorityHigh,
		director.PriorityNormal,
	}, req.priorities)
	assert.Equal(t, 3, s.Requested())
}

func TestService_RejectedRequest(t *testing.T) {
	s := New(&fakeWorld{}, &fakeRequester{reject: true}, DefaultConfig(), nil)
	assert.False(t, s.Evaluate())
	assert.Equal(t, 0, s.Requested())
	assert.NotEmpty(t, s.LastScenario())

	s = New(&fakeWorld{}, nil, Config{}, nil)
	assert.False(t, s.Evaluate())
	assert.Equal(t, DefaultInterval, s.Interval())
}
