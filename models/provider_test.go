package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rickchristie/director"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestResolveModelPath(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		dirs    []string
		ext     string
		want    string
		wantErr bool
	}{
		{
			name:  "first match in lexicographic order",
			files: []string{"zeta.gguf", "alpha.gguf", "notes.txt"},
			want:  "alpha.gguf",
		},
		{
			name:  "extension is case-insensitive",
			files: []string{"Director-Q4.GGUF"},
			want:  "Director-Q4.GGUF",
		},
		{
			name:  "custom extension without dot",
			files: []string{"a.gguf", "b.bin"},
			ext:   "bin",
			want:  "b.bin",
		},
		{
			name:    "directories are ignored",
			dirs:    []string{"nested.gguf"},
			wantErr: true,
		},
		{
			name:    "no model",
			files:   []string{"readme.md"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tc.files {
				touch(t, dir, f)
			}
			for _, d := range tc.dirs {
				require.NoError(t, os.Mkdir(filepath.Join(dir, d), 0o755))
			}

			got, err := ResolveModelPath(dir, tc.ext)
			if tc.wantErr {
				require.ErrorIs(t, err, director.ErrNoModel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tc.want), got)
		})
	}
}

func TestResolveModelPath_MissingDir(t *testing.T) {
	_, err := ResolveModelPath(filepath.Join(t.TempDir(), "absent"), "")
	assert.ErrorIs(t, err, director.ErrNoModel)
}

func TestOpen(t *testing.T) {
	t.Run("none is inert", func(t *testing.T) {
		b, err := Open(BackendConfig{Provider: ProviderNone}, nil)
		require.NoError(t, err)
		assert.Nil(t, b)

		b, err = Open(BackendConfig{}, nil)
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := Open(BackendConfig{Provider: "carrier-pigeon"}, nil)
		assert.ErrorContains(t, err, "unknown provider")
	})

	t.Run("ollama names the model after the local file", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "director-3b.gguf")

		b, err := Open(BackendConfig{Provider: ProviderOllama, ModelsDir: dir}, nil)
		require.NoError(t, err)
		lcg, ok := b.(*LCGBackend)
		require.True(t, ok)
		assert.Equal(t, "director-3b", lcg.modelName)
	})

	t.Run("ollama without a model file", func(t *testing.T) {
		_, err := Open(BackendConfig{Provider: ProviderOllama, ModelsDir: t.TempDir()}, nil)
		assert.ErrorIs(t, err, director.ErrNoModel)
	})

	t.Run("ollama with explicit model", func(t *testing.T) {
		b, err := Open(BackendConfig{Provider: ProviderOllama, Model: "llama3.2", ServerURL: "http://127.0.0.1:11434"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "llama3.2", b.(*LCGBackend).modelName)
	})

	t.Run("github requires a token", func(t *testing.T) {
		_, err := Open(BackendConfig{Provider: ProviderGitHub, Model: "openai/gpt-4o-mini"}, nil)
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("openai compatible endpoint", func(t *testing.T) {
		b, err := Open(BackendConfig{
			Provider:  ProviderOpenAI,
			Model:     "local",
			ServerURL: "http://127.0.0.1:8080/v1",
			APIKey:    "unused",
		}, nil)
		require.NoError(t, err)
		assert.NotNil(t, b)
	})
}
