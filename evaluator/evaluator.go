// Package evaluator samples the game world and asks the difficulty service for an
// evaluation on a fixed interval.
package evaluator

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rickchristie/director"
	"github.com/rickchristie/director/decoder"
)

// DefaultInterval is how often Tick requests an evaluation.
const DefaultInterval = 10 * time.Second

// World exposes the state a scenario is built from.
type World interface {
	// PlayerHealth returns the player's health. ok is false when there is no player.
	PlayerHealth() (hp float64, ok bool)

	// EnemyCount returns the number of live enemies.
	EnemyCount() int

	// EnemyDistances returns the distance from the player to each live enemy. It is empty
	// when there is no player.
	EnemyDistances() []float64
}

// Requester accepts scenarios. *subsystem.Subsystem implements it.
type Requester interface {
	RequestDifficultyUpdateAt(scenario string, priority director.Priority) bool
}

// Scenario is a point-in-time summary of the world.
type Scenario struct {
	PlayerHP         float64
	EnemyCount       int
	AvgEnemyDistance float64
}

// JSON renders the scenario in the gda.fps.input.v1 shape the model is prompted with.
func (s Scenario) JSON() string {
	return fmt.Sprintf(
		`{"schema":%q,"player":{"hp":%.3f},"world":{"enemy_count":%d,"avg_enemy_distance":%.1f}}`,
		decoder.InputSchema,
		s.PlayerHP,
		s.EnemyCount,
		s.AvgEnemyDistance,
	)
}

// BuildScenario samples w. Health defaults to 1.0 without a player; the average distance
// is 0 when no distances are known.
func BuildScenario(w World) Scenario {
	sc := Scenario{PlayerHP: 1.0}
	if w == nil {
		return sc
	}
	if hp, ok := w.PlayerHealth(); ok {
		sc.PlayerHP = hp
	}
	sc.EnemyCount = w.EnemyCount()

	if d := w.EnemyDistances(); len(d) > 0 {
		sum := 0.0
		for _, v := range d {
			sum += v
		}
		sc.AvgEnemyDistance = sum / float64(len(d))
	}
	return sc
}

// Config configures a Service.
type Config struct {
	Interval     time.Duration
	AutoEvaluate bool
}

// DefaultConfig evaluates automatically every DefaultInterval.
func DefaultConfig() Config {
	return Config{
		Interval:     DefaultInterval,
		AutoEvaluate: true,
	}
}

// Service triggers evaluations. Like the subsystem it feeds, it belongs to the game loop
// goroutine.
type Service struct {
	world     World
	requester Requester
	logger    *slog.Logger

	interval  time.Duration
	auto      bool
	sinceLast time.Duration

	requested    int
	lastScenario string
}

// New creates a Service. A non-positive interval becomes DefaultInterval.
func New(world World, requester Requester, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Service{
		world:     world,
		requester: requester,
		logger:    logger,
		interval:  cfg.Interval,
		auto:      cfg.AutoEvaluate,
	}
}

// Tick advances the evaluation timer by delta and evaluates once it reaches the interval.
// It does nothing while auto evaluation is off. Reports whether a request was sent.
func (s *Service) Tick(delta time.Duration) bool {
	if !s.auto {
		return false
	}
	s.sinceLast += delta
	if s.sinceLast < s.interval {
		return false
	}
	return s.Evaluate()
}

// Evaluate builds a scenario and requests an evaluation now at normal priority, resetting
// the interval.
func (s *Service) Evaluate() bool {
	return s.EvaluateAt(director.PriorityNormal)
}

// EvaluateAt is Evaluate with an explicit priority.
func (s *Service) EvaluateAt(priority director.Priority) bool {
	s.sinceLast = 0

	scenario := BuildScenario(s.world).JSON()
	s.lastScenario = scenario
	s.logger.Info("evaluating difficulty", "scenario", scenario, "priority", priority.String())

	if s.requester == nil {
		s.logger.Warn("no difficulty service to evaluate with")
		return false
	}
	if !s.requester.RequestDifficultyUpdateAt(scenario, priority) {
		s.logger.Warn("difficulty request rejected")
		return false
	}
	s.requested++
	return true
}

// SetAutoEvaluate turns interval evaluation on or off.
func (s *Service) SetAutoEvaluate(on bool) {
	s.auto = on
}

// AutoEvaluate reports whether interval evaluation is on.
func (s *Service) AutoEvaluate() bool {
	return s.auto
}

// Interval returns the evaluation interval.
func (s *Service) Interval() time.Duration {
	return s.interval
}

// Requested returns how many requests were accepted.
func (s *Service) Requested() int {
	return s.requested
}

// LastScenario returns the most recent scenario JSON, or "".
func (s *Service) LastScenario() string {
	return s.lastScenario
}
