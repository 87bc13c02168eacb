// Package config loads director settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then DIRECTOR_*
// environment variables. The result is validated before use.
//
//	log:
//	  level: debug
//	scheduler:
//	  max_concurrent_jobs: 2
//	  inference_timeout: 30s
//	backend:
//	  provider: ollama
//	  models_dir: ./models
//
// The same settings from the environment:
//
//	DIRECTOR_LOG_LEVEL=debug
//	DIRECTOR_SCHEDULER_MAX_CONCURRENT_JOBS=2
//	DIRECTOR_BACKEND_PROVIDER=ollama
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rickchristie/director"
	"github.com/rickchristie/director/decoder"
	"github.com/rickchristie/director/evaluator"
	"github.com/rickchristie/director/internal/logging"
	"github.com/rickchristie/director/models"
	"github.com/rickchristie/director/scheduler"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "DIRECTOR_"

var ErrInvalid = errors.New("config: invalid")

// Config is the full set of director settings.
type Config struct {
	Log       logging.Config `yaml:"log" envPrefix:"LOG_"`
	Scheduler Scheduler      `yaml:"scheduler" envPrefix:"SCHEDULER_"`
	Decoder   Decoder        `yaml:"decoder" envPrefix:"DECODER_"`
	Evaluator Evaluator      `yaml:"evaluator" envPrefix:"EVALUATOR_"`
	Backend   Backend        `yaml:"backend" envPrefix:"BACKEND_"`
	Metrics   Metrics        `yaml:"metrics" envPrefix:"METRICS_"`
	Loop      Loop           `yaml:"loop" envPrefix:"LOOP_"`

	// Baseline is only configurable from the file.
	Baseline director.Difficulty `yaml:"baseline"`
}

type Scheduler struct {
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs" env:"MAX_CONCURRENT_JOBS"`
	InferenceTimeout  time.Duration `yaml:"inference_timeout" env:"INFERENCE_TIMEOUT"`
}

type Decoder struct {
	FineLimit float64 `yaml:"fine_limit" env:"FINE_LIMIT"`
	Strict    bool    `yaml:"strict" env:"STRICT"`
}

type Evaluator struct {
	Interval     time.Duration `yaml:"interval" env:"INTERVAL"`
	AutoEvaluate bool          `yaml:"auto_evaluate" env:"AUTO_EVALUATE"`
}

type Backend struct {
	Provider    models.Provider `yaml:"provider" env:"PROVIDER"`
	Model       string          `yaml:"model" env:"MODEL"`
	ServerURL   string          `yaml:"server_url" env:"SERVER_URL"`
	APIKey      string          `yaml:"api_key" env:"API_KEY"`
	ModelsDir   string          `yaml:"models_dir" env:"MODELS_DIR"`
	ModelExt    string          `yaml:"model_ext" env:"MODEL_EXT"`
	Temperature float64         `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int             `yaml:"max_tokens" env:"MAX_TOKENS"`
	TopK        int             `yaml:"top_k" env:"TOP_K"`
	TopP        float64         `yaml:"top_p" env:"TOP_P"`
}

// BackendConfig converts the section to models.BackendConfig.
func (b Backend) BackendConfig() models.BackendConfig {
	return models.BackendConfig{
		Provider:    b.Provider,
		Model:       b.Model,
		ServerURL:   b.ServerURL,
		APIKey:      b.APIKey,
		ModelsDir:   b.ModelsDir,
		ModelExt:    b.ModelExt,
		Temperature: b.Temperature,
		MaxTokens:   b.MaxTokens,
		TopK:        b.TopK,
		TopP:        b.TopP,
	}
}

type Metrics struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr" env:"ADDR"`
}

type Loop struct {
	// TickRate is the simulated frame interval of the run command.
	TickRate time.Duration `yaml:"tick_rate" env:"TICK_RATE"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: logging.DefaultConfig(),
		Scheduler: Scheduler{
			MaxConcurrentJobs: scheduler.DefaultMaxConcurrentJobs,
		},
		Decoder: Decoder{
			FineLimit: director.DefaultFineLimit,
		},
		Evaluator: Evaluator{
			Interval:     evaluator.DefaultInterval,
			AutoEvaluate: true,
		},
		Backend: Backend{
			Provider:    models.ProviderOllama,
			ModelsDir:   "models",
			ModelExt:    models.DefaultModelExt,
			Temperature: models.DefaultTemperature,
			MaxTokens:   models.DefaultMaxTokens,
			TopK:        models.DefaultTopK,
			TopP:        models.DefaultTopP,
		},
		Metrics:  Metrics{Addr: ":9464"},
		Loop:     Loop{TickRate: 100 * time.Millisecond},
		Baseline: director.DefaultBaseline(),
	}
}

// Load reads path (if non-empty), applies environment overrides and validates.
func Load(path string) (Config, error) {
	return load(path, env.Options{Prefix: EnvPrefix})
}

func load(path string, opts env.Options) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML overlays data onto cfg, rejecting unknown keys. An empty document is fine.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Scheduler.MaxConcurrentJobs < 1 {
		add("scheduler.max_concurrent_jobs must be at least 1, got %d", c.Scheduler.MaxConcurrentJobs)
	}
	if c.Scheduler.InferenceTimeout < 0 {
		add("scheduler.inference_timeout must not be negative")
	}
	if c.Decoder.FineLimit < 0 {
		add("decoder.fine_limit must not be negative")
	}
	if c.Evaluator.Interval <= 0 {
		add("evaluator.interval must be positive")
	}
	if c.Loop.TickRate <= 0 {
		add("loop.tick_rate must be positive")
	}
	switch c.Backend.Provider {
	case models.ProviderNone, models.ProviderOllama, models.ProviderOpenAI, models.ProviderGitHub:
	default:
		add("backend.provider %q is not one of none, ollama, openai, github", c.Backend.Provider)
	}

	b := c.Baseline
	for _, level := range []struct {
		name  string
		value int
	}{
		{decoder.ArgAimSpreadLevel, b.AimSpreadLevel},
		{decoder.ArgReactionLevel, b.ReactionLevel},
		{decoder.ArgAggressionLevel, b.AggressionLevel},
		{decoder.ArgPeekLevel, b.PeekLevel},
	} {
		if level.value < director.MinLevel || level.value > director.MaxLevel {
			add("baseline.%s must be within [%d, %d], got %d",
				level.name, director.MinLevel, director.MaxLevel, level.value)
		}
	}
	if b.DurationS < 0 {
		add("baseline.duration_s must not be negative")
	}

	return errors.Join(errs...)
}
