package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rickchristie/director"
	"github.com/rickchristie/director/schema"
)

const (
	// ToolName is the tool call that carries difficulty arguments.
	ToolName = "AdjustAIDifficulty"

	// InputSchema tags scenario payloads sent to the model.
	InputSchema = "gda.fps.input.v1"

	// OutputSchema tags the model's answers.
	OutputSchema = "gda.fps.output.v1"

	// DefaultReason is used when the model gives no reason.
	DefaultReason = "No reason provided"
)

// Argument names inside the tool call.
const (
	ArgAimSpreadLevel  = "aim_spread_level"
	ArgAimSpreadFine   = "aim_spread_fine"
	ArgReactionLevel   = "reaction_level"
	ArgAggressionLevel = "aggression_level"
	ArgPeekLevel       = "peek_level"
	ArgDurationS       = "duration_s"
)

var (
	ErrInvalidJSON        = errors.New("decoder: invalid JSON")
	ErrMissingToolCalls   = errors.New("decoder: missing tool_calls array")
	ErrNoMatchingToolCall = errors.New("decoder: no matching tool call")
	ErrInvalidArgs        = errors.New("decoder: invalid tool arguments")
)

// argsSchema constrains argument types only. Ranges are enforced by clamping.
var argsSchema = schema.MustCompile(schema.Strict(schema.Object(map[string]*schema.Property{
	ArgAimSpreadLevel:  schema.Integer("Bot aim spread level, 0 (tight) to 10 (wide)"),
	ArgAimSpreadFine:   schema.Number("Fine aim spread offset, -0.10 to +0.10"),
	ArgReactionLevel:   schema.Integer("Bot reaction delay level, 0 to 10"),
	ArgAggressionLevel: schema.Integer("Bot aggression level, 0 to 10"),
	ArgPeekLevel:       schema.Integer("Bot peeking frequency level, 0 to 10"),
	ArgDurationS:       schema.Integer("Seconds before reverting to baseline, 0 keeps it"),
})))

// ArgsSchema returns the compiled schema for AdjustAIDifficulty arguments.
func ArgsSchema() *schema.Schema {
	return argsSchema
}

// Result is a successful decode.
type Result struct {
	Difficulty director.Difficulty

	// Reason is the model's explanation, or DefaultReason.
	Reason string

	// Intent is the model's short summary of what it wants to achieve. May be empty.
	Intent string

	// Schema is the schema tag the model echoed back. May be empty.
	Schema string
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithFineLimit bounds AimSpreadFine to [-limit, limit]. A limit <= 0 disables the bound.
func WithFineLimit(limit float64) Option {
	return func(d *Decoder) {
		d.fineLimit = limit
	}
}

// WithStrict validates the matched tool call's arguments against ArgsSchema and fails the
// decode on mismatched types or unknown arguments.
func WithStrict(strict bool) Option {
	return func(d *Decoder) {
		d.strict = strict
	}
}

// WithLogger sets the logger used for skipped entries and ignored arguments.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Decoder parses model output. It holds no per-call state and is safe for concurrent use.
type Decoder struct {
	fineLimit float64
	strict    bool
	logger    *slog.Logger
}

// New creates a lenient Decoder bounded by director.DefaultFineLimit.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		fineLimit: director.DefaultFineLimit,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode parses raw and overlays the matched tool call's arguments onto current.
//
// raw must be exactly one JSON object. On error the returned Result is zero and current
// should stay in effect.
func (d *Decoder) Decode(raw string, current director.Difficulty) (Result, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if doc == nil {
		return Result{}, fmt.Errorf("%w: not an object", ErrInvalidJSON)
	}

	res := Result{
		Reason: DefaultReason,
		Intent: stringField(doc, "intent"),
		Schema: stringField(doc, "schema"),
	}
	if reason := stringField(doc, "reason"); reason != "" {
		res.Reason = reason
	}

	calls, ok := doc["tool_calls"].([]any)
	if !ok {
		return Result{}, ErrMissingToolCalls
	}

	args, err := d.findArgs(calls)
	if err != nil {
		return Result{}, err
	}

	if d.strict {
		if err := argsSchema.Validate(args); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
	}

	res.Difficulty = d.overlay(args, current)
	return res, nil
}

// findArgs returns the args object of the first usable matching tool call. A matching
// entry without an args object is skipped and the scan continues.
func (d *Decoder) findArgs(calls []any) (map[string]any, error) {
	for i, entry := range calls {
		call, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := call["name"].(string)
		if !strings.EqualFold(name, ToolName) {
			continue
		}
		args, ok := call["args"].(map[string]any)
		if !ok {
			d.logger.Debug("skipping tool call without args object", "index", i, "name", name)
			continue
		}
		return args, nil
	}
	return nil, fmt.Errorf("%w: want %s", ErrNoMatchingToolCall, ToolName)
}

func (d *Decoder) overlay(args map[string]any, current director.Difficulty) director.Difficulty {
	out := current

	levels := []struct {
		key string
		dst *int
	}{
		{ArgAimSpreadLevel, &out.AimSpreadLevel},
		{ArgReactionLevel, &out.ReactionLevel},
		{ArgAggressionLevel, &out.AggressionLevel},
		{ArgPeekLevel, &out.PeekLevel},
	}
	for _, l := range levels {
		if v, ok := d.number(args, l.key); ok {
			*l.dst = director.LevelFromFloat(v)
		}
	}

	if v, ok := d.number(args, ArgAimSpreadFine); ok {
		out.AimSpreadFine = director.FineFromFloat(v, d.fineLimit)
	}
	if v, ok := d.number(args, ArgDurationS); ok {
		out.DurationS = director.DurationFromFloat(v)
	}
	return out
}

// number reads a numeric argument. Present but non-numeric values are ignored.
func (d *Decoder) number(args map[string]any, key string) (float64, bool) {
	raw, present := args[key]
	if !present {
		return 0, false
	}
	v, ok := raw.(float64)
	if !ok {
		d.logger.Debug("ignoring non-numeric argument", "arg", key, "value", raw)
		return 0, false
	}
	return v, true
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}
