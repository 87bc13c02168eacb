// Package decoder turns model output into a validated [director.Difficulty].
//
// The model is asked to answer with a single JSON object:
//
//	{"schema":"gda.fps.output.v1","intent":"...","reason":"...",
//	 "tool_calls":[{"name":"AdjustAIDifficulty","args":{
//	   "aim_spread_level":2,"aim_spread_fine":0.05,
//	   "reaction_level":1,"aggression_level":1,
//	   "peek_level":1,"duration_s":60}}]}
//
// Decoding picks the first tool call named AdjustAIDifficulty (case-insensitive), overlays
// whichever of the six fields it carries onto the current configuration, and normalizes
// the result: levels are rounded and clamped to [director.MinLevel, director.MaxLevel],
// the duration is rounded and floored at zero, and the fine aim offset is bounded by the
// decoder's fine limit.
//
// Any failure leaves the caller's configuration untouched; the error says why.
package decoder
