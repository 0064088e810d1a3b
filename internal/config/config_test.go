package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultStorageDir, cfg.StorageDir)
	assert.Equal(t, []string{"py"}, cfg.Extensions)
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(path, true)
	assert.Error(t, err)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
backend = "sqlite"
batch_size = 8

[embedding]
provider = "hash"
dimension = 64
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 64, cfg.Embedding.Dimension)
	// Untouched keys keep their defaults.
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, DefaultStorageDir, cfg.StorageDir)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size = ["), 0o644))

	_, err := Load(path, true)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CODERAG_PROVIDER", "openai")
	t.Setenv("CODERAG_MODEL", "text-embedding-3-small")
	t.Setenv("CODERAG_OLLAMA_URL", "http://ollama:11434")
	t.Setenv("CODERAG_BATCH_SIZE", "16")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "http://ollama:11434", cfg.Embedding.OllamaURL)
	assert.Equal(t, "http://ollama:11434", cfg.Chat.OllamaURL)
	assert.Equal(t, 16, cfg.BatchSize)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(dir), "missing .env is not an error")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CODERAG_TEST_DOTENV=loaded\n"), 0o644))
	t.Setenv("CODERAG_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("CODERAG_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "loaded", os.Getenv("CODERAG_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"storage dir with slash", func(c *Config) { c.StorageDir = "a/b" }, "storage_dir"},
		{"unknown backend", func(c *Config) { c.Backend = "badger" }, "backend"},
		{"no extensions", func(c *Config) { c.Extensions = nil }, "extensions"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bert" }, "embedding.provider"},
		{"hash without dimension", func(c *Config) {
			c.Embedding.Provider = "hash"
			c.Embedding.Dimension = 0
		}, "embedding.dimension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestResolveStorePath(t *testing.T) {
	root := "/repo"

	cfg := Default()
	assert.Equal(t, filepath.Join(root, ".coderag", "index.gob"), cfg.ResolveStorePath(root))

	cfg.Backend = "sqlite"
	assert.Equal(t, filepath.Join(root, ".coderag", "index.db"), cfg.ResolveStorePath(root))

	cfg.StorePath = "custom/store.gob"
	assert.Equal(t, filepath.Join(root, "custom", "store.gob"), cfg.ResolveStorePath(root))

	cfg.StorePath = "/abs/store.gob"
	assert.Equal(t, "/abs/store.gob", cfg.ResolveStorePath(root))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
