package models

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rickchristie/director"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider names an inference provider.
type Provider string

const (
	// ProviderNone runs without a model. Requests complete empty.
	ProviderNone Provider = "none"

	// ProviderOllama talks to a local Ollama server.
	ProviderOllama Provider = "ollama"

	// ProviderOpenAI talks to any OpenAI-compatible endpoint, such as a llama.cpp server.
	ProviderOpenAI Provider = "openai"

	// ProviderGitHub talks to GitHub Models.
	ProviderGitHub Provider = "github"
)

// DefaultModelExt is the model file extension searched for in the models directory.
const DefaultModelExt = ".gguf"

// BackendConfig selects and configures an inference backend.
type BackendConfig struct {
	Provider Provider

	// Model is the provider's model name. For ollama it may be left empty, in which case
	// the first model file in ModelsDir names it.
	Model string

	// ServerURL overrides the provider endpoint (ollama server or OpenAI base URL).
	ServerURL string

	// APIKey authenticates hosted providers.
	APIKey string

	ModelsDir string
	ModelExt  string

	Temperature float64
	MaxTokens   int
	TopK        int
	TopP        float64
}

// Open builds the backend described by cfg. ProviderNone yields a nil backend and no error,
// which leaves the subsystem inert.
func Open(cfg BackendConfig, logger *slog.Logger) (director.Backend, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var (
		llm  llms.Model
		name = cfg.Model
		err  error
	)
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil

	case ProviderOllama:
		if name == "" {
			path, rerr := ResolveModelPath(cfg.ModelsDir, cfg.ModelExt)
			if rerr != nil {
				return nil, rerr
			}
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			logger.Info("resolved local model", "path", path, "model", name)
		}
		opts := []ollama.Option{ollama.WithModel(name)}
		if cfg.ServerURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
		}
		llm, err = ollama.New(opts...)

	case ProviderOpenAI:
		opts := []openai.Option{openai.WithModel(name), openai.WithToken(cfg.APIKey)}
		if cfg.ServerURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.ServerURL))
		}
		llm, err = openai.New(opts...)

	case ProviderGitHub:
		llm, err = newGitHubModel(name, cfg.APIKey)

	default:
		return nil, fmt.Errorf("models: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Provider, err)
	}

	return NewLCGBackend(llm).
		WithModelName(name).
		WithLogger(logger).
		WithSampling(cfg.Temperature, cfg.MaxTokens, cfg.TopK, cfg.TopP), nil
}

// ResolveModelPath returns the lexicographically first regular file in dir whose extension
// matches ext (case-insensitively). An empty ext means DefaultModelExt. It returns
// director.ErrNoModel when there is none.
func ResolveModelPath(dir, ext string) (string, error) {
	if ext == "" {
		ext = DefaultModelExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w in %s: %v", director.ErrNoModel, dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w in %s (want *%s)", director.ErrNoModel, dir, ext)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}
