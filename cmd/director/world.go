package main

import (
	"math/rand/v2"
	"slices"
	"time"
)

// Simulation tuning, in metres and fractions of full health per second.
const (
	approachSpeed   = 3.0
	attackRange     = 8.0
	killRange       = 2.0
	damagePerSecond = 0.04
	regenPerSecond  = 0.01
	spawnMin        = 20.0
	spawnMax        = 60.0
	maxWave         = 5
)

// simWorld is a stand-in for a game world: waves of enemies walk toward the player, hurt
// them inside attack range and die on reaching kill range. A wave respawns once cleared.
type simWorld struct {
	rng       *rand.Rand
	hp        float64
	distances []float64
}

func newSimWorld(seed uint64) *simWorld {
	w := &simWorld{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		hp:  1,
	}
	w.spawn()
	return w
}

func (w *simWorld) PlayerHealth() (float64, bool) {
	return w.hp, true
}

func (w *simWorld) EnemyCount() int {
	return len(w.distances)
}

func (w *simWorld) EnemyDistances() []float64 {
	return slices.Clone(w.distances)
}

// Set replaces the world state. hp is clamped to [0, 1].
func (w *simWorld) Set(hp float64, distances []float64) {
	w.hp = min(1, max(0, hp))
	w.distances = slices.Clone(distances)
}

// Step advances the simulation by delta.
func (w *simWorld) Step(delta time.Duration) {
	dt := delta.Seconds()
	if dt <= 0 {
		return
	}

	alive := w.distances[:0]
	for _, d := range w.distances {
		d -= approachSpeed * dt
		if d <= killRange {
			continue
		}
		if d < attackRange {
			w.hp -= damagePerSecond * dt
		}
		alive = append(alive, d)
	}
	w.distances = alive
	w.hp = min(1, w.hp+regenPerSecond*dt)

	if w.hp <= 0 {
		w.hp = 1
		w.distances = w.distances[:0]
	}
	if len(w.distances) == 0 {
		w.spawn()
	}
}

func (w *simWorld) spawn() {
	n := 1 + w.rng.IntN(maxWave)
	for range n {
		w.distances = append(w.distances, spawnMin+w.rng.Float64()*(spawnMax-spawnMin))
	}
}
