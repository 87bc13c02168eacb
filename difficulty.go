package director

import (
	"fmt"
	"math"
)

const (
	// MinLevel is the lowest value a decoded difficulty level may take.
	MinLevel = 0

	// MaxLevel is the highest value a decoded difficulty level may take.
	MaxLevel = 10

	// DefaultFineLimit bounds AimSpreadFine in both directions. It matches the
	// -0.10..+0.10 range the model is instructed to produce.
	DefaultFineLimit = 0.10
)

// Difficulty is the six-field tuning record pushed to gameplay agents.
//
// The four levels are clamped to [MinLevel, MaxLevel] when they come from model output.
// DurationS is how long the configuration stays in effect before the baseline is
// restored; 0 means it stays until the next change.
type Difficulty struct {
	AimSpreadLevel  int     `json:"aim_spread_level" yaml:"aim_spread_level"`
	AimSpreadFine   float64 `json:"aim_spread_fine" yaml:"aim_spread_fine"`
	ReactionLevel   int     `json:"reaction_level" yaml:"reaction_level"`
	AggressionLevel int     `json:"aggression_level" yaml:"aggression_level"`
	PeekLevel       int     `json:"peek_level" yaml:"peek_level"`
	DurationS       int     `json:"duration_s" yaml:"duration_s"`
}

// DefaultBaseline returns the configuration restored when a timed adjustment expires.
func DefaultBaseline() Difficulty {
	return Difficulty{
		AimSpreadLevel:  1,
		AimSpreadFine:   0,
		ReactionLevel:   1,
		AggressionLevel: 1,
		PeekLevel:       1,
		DurationS:       0,
	}
}

// String returns a single-line form suitable for logs.
func (d Difficulty) String() string {
	return fmt.Sprintf(
		"AimSpreadLevel=%d AimSpreadFine=%.3f ReactionLevel=%d AggressionLevel=%d PeekLevel=%d Duration=%ds",
		d.AimSpreadLevel,
		d.AimSpreadFine,
		d.ReactionLevel,
		d.AggressionLevel,
		d.PeekLevel,
		d.DurationS,
	)
}

// Lines returns one "field: value" line per field, in declaration order.
// Used to render diffs between two configurations.
func (d Difficulty) Lines() []string {
	return []string{
		fmt.Sprintf("aim_spread_level: %d\n", d.AimSpreadLevel),
		fmt.Sprintf("aim_spread_fine: %.3f\n", d.AimSpreadFine),
		fmt.Sprintf("reaction_level: %d\n", d.ReactionLevel),
		fmt.Sprintf("aggression_level: %d\n", d.AggressionLevel),
		fmt.Sprintf("peek_level: %d\n", d.PeekLevel),
		fmt.Sprintf("duration_s: %d\n", d.DurationS),
	}
}

// LevelFromFloat rounds v half away from zero and clamps it to [MinLevel, MaxLevel].
// Clamping happens before the integer conversion so out-of-range inputs cannot overflow.
func LevelFromFloat(v float64) int {
	if math.IsNaN(v) {
		return MinLevel
	}
	v = math.Round(v)
	if v < MinLevel {
		return MinLevel
	}
	if v > MaxLevel {
		return MaxLevel
	}
	return int(v)
}

// DurationFromFloat rounds v half away from zero and floors it at zero.
// Values beyond math.MaxInt32 are capped there.
func DurationFromFloat(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// FineFromFloat bounds v to [-limit, limit]. A non-positive limit leaves v untouched.
// Non-finite values collapse to zero.
func FineFromFloat(v, limit float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if limit <= 0 {
		return v
	}
	return math.Max(-limit, math.Min(limit, v))
}
