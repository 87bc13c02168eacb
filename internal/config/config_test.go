package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rickchristie/director"
	"github.com/rickchristie/director/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "director.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadWith(t *testing.T, path string, environ map[string]string) (Config, error) {
	t.Helper()
	return load(path, env.Options{Prefix: EnvPrefix, Environment: environ})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Scheduler.MaxConcurrentJobs)
	assert.Equal(t, 10*time.Second, cfg.Evaluator.Interval)
	assert.True(t, cfg.Evaluator.AutoEvaluate)
	assert.Equal(t, director.DefaultBaseline(), cfg.Baseline)
	assert.Equal(t, models.ProviderOllama, cfg.Backend.Provider)
	assert.Equal(t, ".gguf", cfg.Backend.ModelExt)
}

func TestLoad_Layers(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
  format: json
scheduler:
  max_concurrent_jobs: 4
  inference_timeout: 45s
decoder:
  fine_limit: 0.2
evaluator:
  interval: 5s
backend:
  provider: openai
  model: from-file
baseline:
  aim_spread_level: 2
  reaction_level: 2
  aggression_level: 2
  peek_level: 2
`)

	cfg, err := loadWith(t, path, map[string]string{
		"DIRECTOR_BACKEND_MODEL":           "from-env",
		"DIRECTOR_EVALUATOR_AUTO_EVALUATE": "false",
		"DIRECTOR_DECODER_STRICT":          "true",
		"UNRELATED_SCHEDULER_MAX":          "99",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Scheduler.MaxConcurrentJobs)
	assert.Equal(t, 45*time.Second, cfg.Scheduler.InferenceTimeout)
	assert.InDelta(t, 0.2, cfg.Decoder.FineLimit, 1e-9)
	assert.True(t, cfg.Decoder.Strict)
	assert.Equal(t, 5*time.Second, cfg.Evaluator.Interval)
	assert.False(t, cfg.Evaluator.AutoEvaluate)
	assert.Equal(t, models.ProviderOpenAI, cfg.Backend.Provider)
	assert.Equal(t, "from-env", cfg.Backend.Model, "environment wins over the file")
	assert.Equal(t, 2, cfg.Baseline.PeekLevel)

	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Backend.TopK, cfg.Backend.TopK)
	assert.Equal(t, Default().Loop, cfg.Loop)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := loadWith(t, "", map[string]string{
		"DIRECTOR_SCHEDULER_MAX_CONCURRENT_JOBS": "3",
		"DIRECTOR_LOOP_TICK_RATE":                "50ms",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Scheduler.MaxConcurrentJobs)
	assert.Equal(t, 50*time.Millisecond, cfg.Loop.TickRate)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := loadWith(t, writeFile(t, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		environ map[string]string
		want    string
	}{
		{
			name: "unknown key",
			file: "scheduler:\n  max_jobs: 3\n",
			want: "max_jobs",
		},
		{
			name: "malformed yaml",
			file: "scheduler: [",
			want: "parse config",
		},
		{
			name:    "bad env value",
			environ: map[string]string{"DIRECTOR_SCHEDULER_MAX_CONCURRENT_JOBS": "many"},
			want:    "parse env",
		},
		{
			name:    "invalid value",
			environ: map[string]string{"DIRECTOR_SCHEDULER_MAX_CONCURRENT_JOBS": "0"},
			want:    "max_concurrent_jobs",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := ""
			if tc.file != "" {
				path = writeFile(t, tc.file)
			}
			_, err := loadWith(t, path, tc.environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "negative timeout", mutate: func(c *Config) { c.Scheduler.InferenceTimeout = -time.Second }, want: "inference_timeout"},
		{name: "negative fine limit", mutate: func(c *Config) { c.Decoder.FineLimit = -1 }, want: "fine_limit"},
		{name: "zero interval", mutate: func(c *Config) { c.Evaluator.Interval = 0 }, want: "evaluator.interval"},
		{name: "zero tick rate", mutate: func(c *Config) { c.Loop.TickRate = 0 }, want: "tick_rate"},
		{name: "unknown provider", mutate: func(c *Config) { c.Backend.Provider = "psychic" }, want: "backend.provider"},
		{name: "baseline out of range", mutate: func(c *Config) { c.Baseline.PeekLevel = 11 }, want: "baseline.peek_level"},
		{name: "negative baseline duration", mutate: func(c *Config) { c.Baseline.DurationS = -1 }, want: "baseline.duration_s"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "chatty" }, want: "unknown level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.MaxConcurrentJobs = 0
	cfg.Loop.TickRate = 0

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "max_concurrent_jobs")
	assert.Contains(t, err.Error(), "tick_rate")
}

func TestValidate_BaselineErrorsInFieldOrder(t *testing.T) {
	cfg := Default()
	cfg.Baseline.AimSpreadLevel = -1
	cfg.Baseline.ReactionLevel = 11
	cfg.Baseline.AggressionLevel = 12
	cfg.Baseline.PeekLevel = -2

	want := []string{
		"baseline.aim_spread_level",
		"baseline.reaction_level",
		"baseline.aggression_level",
		"baseline.peek_level",
	}
	for range 20 {
		err := cfg.Validate()
		require.Error(t, err)
		lines := strings.Split(err.Error(), "\n")
		require.Len(t, lines, len(want))
		for i, name := range want {
			assert.Contains(t, lines[i], name)
		}
	}
}

func TestBackend_BackendConfig(t *testing.T) {
	b := Default().Backend
	b.Model = "director"
	bc := b.BackendConfig()
	assert.Equal(t, models.ProviderOllama, bc.Provider)
	assert.Equal(t, "director", bc.Model)
	assert.Equal(t, models.DefaultTopK, bc.TopK)
}
