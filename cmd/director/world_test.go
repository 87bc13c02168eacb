package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimWorld_SpawnsOnCreate(t *testing.T) {
	w := newSimWorld(1)

	hp, ok := w.PlayerHealth()
	assert.True(t, ok)
	assert.Equal(t, 1.0, hp)
	assert.GreaterOrEqual(t, w.EnemyCount(), 1)
	assert.LessOrEqual(t, w.EnemyCount(), maxWave)
	for _, d := range w.EnemyDistances() {
		assert.GreaterOrEqual(t, d, spawnMin)
		assert.Less(t, d, spawnMax)
	}
}

func TestSimWorld_Step(t *testing.T) {
	tests := []struct {
		name          string
		hp            float64
		distances     []float64
		delta         time.Duration
		wantHP        float64
		wantDistances []float64
	}{
		{
			name:          "enemies approach out of range",
			hp:            0.5,
			distances:     []float64{30, 40},
			delta:         time.Second,
			wantHP:        0.51,
			wantDistances: []float64{27, 37},
		},
		{
			name:          "enemy in range deals damage",
			hp:            0.5,
			distances:     []float64{9, 40},
			delta:         time.Second,
			wantHP:        0.5 - damagePerSecond + regenPerSecond,
			wantDistances: []float64{6, 37},
		},
		{
			name:          "enemy reaching kill range dies",
			hp:            1,
			distances:     []float64{4, 40},
			delta:         time.Second,
			wantHP:        1,
			wantDistances: []float64{37},
		},
		{
			name:          "zero delta is a no-op",
			hp:            0.5,
			distances:     []float64{9},
			delta:         0,
			wantHP:        0.5,
			wantDistances: []float64{9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newSimWorld(7)
			w.Set(tt.hp, tt.distances)

			w.Step(tt.delta)

			hp, _ := w.PlayerHealth()
			assert.InDelta(t, tt.wantHP, hp, 1e-9)
			assert.InDeltaSlice(t, tt.wantDistances, w.EnemyDistances(), 1e-9)
		})
	}
}

func TestSimWorld_RespawnsClearedWave(t *testing.T) {
	w := newSimWorld(3)
	w.Set(1, []float64{3})

	w.Step(time.Second)

	assert.GreaterOrEqual(t, w.EnemyCount(), 1)
}

func TestSimWorld_PlayerDeathResets(t *testing.T) {
	w := newSimWorld(3)
	w.Set(0.01, []float64{5, 6, 7})

	w.Step(time.Second)

	hp, _ := w.PlayerHealth()
	assert.Equal(t, 1.0, hp)
	assert.GreaterOrEqual(t, w.EnemyCount(), 1)
}

func TestSimWorld_SetClampsAndCopies(t *testing.T) {
	w := newSimWorld(1)
	distances := []float64{10}

	w.Set(2, distances)
	distances[0] = 99

	hp, _ := w.PlayerHealth()
	assert.Equal(t, 1.0, hp)
	assert.Equal(t, []float64{10}, w.EnemyDistances())

	w.Set(-1, nil)
	hp, _ = w.PlayerHealth()
	assert.Equal(t, 0.0, hp)
}
