// Package schema builds and compiles the JSON Schemas that describe model-facing payloads.
//
// Schemas serve two purposes: their raw form is rendered into prompts so the model knows
// what to produce, and their compiled form validates decoded arguments in strict mode.
//
// Schemas check types only. Ranges are left to the caller, which clamps instead of
// rejecting.
//
//	args := schema.Strict(schema.Object(map[string]*schema.Property{
//	    "reaction_level":  schema.Integer("Reaction level, 0 to 10"),
//	    "aim_spread_fine": schema.Number("Fine aim offset"),
//	}))
//	s := schema.MustCompile(args)
//	err := s.Validate(decoded)
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// resourceName is the URL the compiler registers each schema under.
const resourceName = "director-schema.json"

// Schema pairs a raw JSON Schema map with its compiled validator.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the map form, for prompts and serialization.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// JSON returns the raw schema as indented JSON.
func (s *Schema) JSON() string {
	if s == nil {
		return "{}"
	}
	b, err := json.MarshalIndent(s.raw, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Validate checks data against the schema. A nil schema accepts everything.
//
// data must be in the shape encoding/json produces when decoding into any
// (map[string]any, []any, float64, string, bool, nil).
func (s *Schema) Validate(data any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	if err := s.compiled.Validate(data); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError wraps a validator failure.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile compiles raw into a Schema. A nil map compiles to a nil Schema.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Schema{raw: raw, compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error. Intended for package-level schemas.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// -----------------------------------------------------------------------------
// Builders
// -----------------------------------------------------------------------------

// Object creates an object schema from its properties.
func Object(properties map[string]*Property) map[string]any {
	props := make(map[string]any, len(properties))
	for name, prop := range properties {
		props[name] = prop.build()
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// Strict marks an object schema as rejecting properties it does not declare.
func Strict(obj map[string]any) map[string]any {
	obj["additionalProperties"] = false
	return obj
}

// Property describes a single field of an object schema.
type Property struct {
	typ         string
	description string
}

func (p *Property) build() map[string]any {
	m := map[string]any{"type": p.typ}
	if p.description != "" {
		m["description"] = p.description
	}
	return m
}

// Integer creates an integer property.
func Integer(description string) *Property {
	return &Property{typ: "integer", description: description}
}

// Number creates a floating point property.
func Number(description string) *Property {
	return &Property{typ: "number", description: description}
}
