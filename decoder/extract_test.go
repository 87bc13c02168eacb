package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "bare object", input: `{"a":1}`, want: `{"a":1}`, wantOK: true},
		{name: "surrounded by prose", input: `OUTPUT: {"a":1} done`, want: `{"a":1}`, wantOK: true},
		{name: "nested", input: `x {"a":{"b":[{"c":2}]}} y`, want: `{"a":{"b":[{"c":2}]}}`, wantOK: true},
		{name: "braces in strings", input: `{"r":"}{"} tail`, want: `{"r":"}{"}`, wantOK: true},
		{name: "escaped quote", input: `{"r":"say \"}\" now"}!`, want: `{"r":"say \"}\" now"}`, wantOK: true},
		{name: "first of two", input: `{"a":1}{"b":2}`, want: `{"a":1}`, wantOK: true},
		{name: "unterminated", input: `{"a":{"b":1}`, wantOK: false},
		{name: "no object", input: "no json here", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
