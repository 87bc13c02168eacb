package models

import (
	"fmt"
	"strings"

	"github.com/rickchristie/director/decoder"
)

// exampleInput and exampleOutput form the single few-shot pair shown to the model.
const (
	exampleInput = `{"schema":"gda.fps.input.v1","player":{"hp":0.9},"world":{"enemy_count":2,"avg_enemy_distance":18.0}}`

	exampleOutput = `{"schema":"gda.fps.output.v1","intent":"increase_pressure","reason":"Player healthy, enemies close.",` +
		`"tool_calls":[{"name":"AdjustAIDifficulty","args":{"aim_spread_level":2,"aim_spread_fine":-0.05,` +
		`"reaction_level":3,"aggression_level":4,"peek_level":2,"duration_s":20}}]}`
)

// SystemPrompt returns the instructions sent ahead of every scenario.
func SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are GameDirector AI for an FPS. Only reply with a single JSON object ")
	fmt.Fprintf(&sb, "matching schema %s with fields intent, reason and tool_calls. ", decoder.OutputSchema)
	fmt.Fprintf(&sb, "tool_calls must contain one call named %s. ", decoder.ToolName)
	sb.WriteString("Levels are 1..5, fine is -0.10..+0.10, duration_s is 1..300. No prose.\n\n")
	fmt.Fprintf(&sb, "%s arguments schema:\n%s\n\n", decoder.ToolName, decoder.ArgsSchema().JSON())
	sb.WriteString("Example:\n")
	fmt.Fprintf(&sb, "INPUT: %s\n", exampleInput)
	fmt.Fprintf(&sb, "OUTPUT: %s", exampleOutput)
	return sb.String()
}

// UserPrompt frames a scenario the same way the example does.
func UserPrompt(scenario string) string {
	return "INPUT: " + scenario + "\nOUTPUT:"
}
