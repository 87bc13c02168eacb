package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rickchristie/director"
	"github.com/rickchristie/director/decoder"
	"github.com/tmc/langchaingo/llms"
)

// Sampling defaults for difficulty evaluation.
const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 384
	DefaultTopK        = 20
	DefaultTopP        = 0.9
)

var (
	ErrEmptyResponse = errors.New("models: model returned no choices")
	ErrNoJSONObject  = errors.New("models: no JSON object in model output")
)

// LCGBackend adapts an llms.Model to director.Backend.
//
// Each call sends the system prompt and the scenario, then returns the first complete JSON
// object in the generated text. Calls are serialized on an internal mutex because a local
// model context serves one generation at a time.
//
//	llm, _ := ollama.New(ollama.WithModel("director"))
//	backend := models.NewLCGBackend(llm).WithModelName("director")
type LCGBackend struct {
	mu        sync.Mutex
	model     llms.Model
	modelName string
	logger    *slog.Logger

	temperature float64
	maxTokens   int
	topK        int
	topP        float64
}

// NewLCGBackend wraps model with the default sampling settings.
func NewLCGBackend(model llms.Model) *LCGBackend {
	return &LCGBackend{
		model:       model,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		topK:        DefaultTopK,
		topP:        DefaultTopP,
	}
}

// WithModelName sets the name used in logs.
func (b *LCGBackend) WithModelName(name string) *LCGBackend {
	b.modelName = name
	return b
}

// WithLogger sets the logger.
func (b *LCGBackend) WithLogger(logger *slog.Logger) *LCGBackend {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithSampling overrides the sampling settings. Zero values keep the current setting.
func (b *LCGBackend) WithSampling(temperature float64, maxTokens, topK int, topP float64) *LCGBackend {
	if temperature > 0 {
		b.temperature = temperature
	}
	if maxTokens > 0 {
		b.maxTokens = maxTokens
	}
	if topK > 0 {
		b.topK = topK
	}
	if topP > 0 {
		b.topP = topP
	}
	return b
}

// Unwrap returns the underlying llms.Model.
func (b *LCGBackend) Unwrap() llms.Model {
	return b.model
}

// Infer implements director.Backend.
func (b *LCGBackend) Infer(ctx context.Context, payload string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, UserPrompt(payload)),
	}

	start := time.Now()
	resp, err := b.model.GenerateContent(ctx, messages,
		llms.WithTemperature(b.temperature),
		llms.WithMaxTokens(b.maxTokens),
		llms.WithTopK(b.topK),
		llms.WithTopP(b.topP),
	)
	elapsed := time.Since(start)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	choice := resp.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	b.logger.Debug("model call finished",
		"model", b.modelName,
		"elapsed", elapsed,
		"input_tokens", in,
		"output_tokens", out,
	)

	obj, ok := decoder.ExtractJSONObject(choice.Content)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoJSONObject, truncate(choice.Content, 200))
	}
	return obj, nil
}

// tokenUsage reads prompt and completion token counts, which providers report under
// different keys.
func tokenUsage(info map[string]any) (input, output int) {
	input = firstInt(info, "PromptTokens", "InputTokens", "input_tokens")
	output = firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens")
	return input, output
}

func firstInt(m map[string]any, keys ...string) int {
	for _, key := range keys {
		if v := intValue(m[key]); v > 0 {
			return v
		}
	}
	return 0
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Compile-time check that LCGBackend implements director.Backend.
var _ director.Backend = (*LCGBackend)(nil)
