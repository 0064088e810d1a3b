// Package config loads coderag settings from a TOML file, a .env file and
// CODERAG_* environment variables.
//
// Precedence, lowest first: built-in defaults, config file, environment,
// command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultStorageDir is the directory, relative to the indexed root, that
// holds the store artifact. Scans skip it.
const DefaultStorageDir = ".coderag"

// Config is the complete coderag configuration.
type Config struct {
	// StorageDir is excluded from scans and holds the default store path.
	StorageDir string `toml:"storage_dir"`

	// StorePath overrides the artifact location. Relative paths resolve
	// against the indexed root.
	StorePath string `toml:"store_path"`

	// Backend is "gob", "sqlite" or empty to infer from the store path.
	Backend string `toml:"backend"`

	Extensions  []string `toml:"extensions"`
	MaxFileSize int64    `toml:"max_file_size"`
	BatchSize   int      `toml:"batch_size"`
	LogLevel    string   `toml:"log_level"`

	Embedding Embedding `toml:"embedding"`
	Chat      Chat      `toml:"chat"`
}

// Embedding selects and tunes the embedding provider.
type Embedding struct {
	// Provider is one of "ollama", "openai", "hash" or "none".
	Provider      string `toml:"provider"`
	Model         string `toml:"model"`
	OllamaURL     string `toml:"ollama_url"`
	OpenAIBaseURL string `toml:"openai_base_url"`
	// Dimension is only used by the hash provider.
	Dimension int `toml:"dimension"`
	// CacheSize is the number of embeddings kept in the LRU; 0 disables it.
	CacheSize int `toml:"cache_size"`
	BatchSize int `toml:"batch_size"`
}

// Chat configures the generator used by `query --ask`.
type Chat struct {
	Model     string `toml:"model"`
	OllamaURL string `toml:"ollama_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StorageDir:  DefaultStorageDir,
		Extensions:  []string{"py"},
		MaxFileSize: 1 << 20,
		BatchSize:   64,
		LogLevel:    "info",
		Embedding: Embedding{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			OllamaURL: "http://localhost:11434",
			Dimension: 256,
			CacheSize: 4096,
			BatchSize: 32,
		},
		Chat: Chat{
			Model:     "qwen3:8b",
			OllamaURL: "http://localhost:11434",
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file is
// not an error unless required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("stat config %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file from dir if one exists. Variables already set
// in the environment win.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides applies CODERAG_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CODERAG_STORE"); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv("CODERAG_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("CODERAG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CODERAG_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("CODERAG_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("CODERAG_OLLAMA_URL"); v != "" {
		c.Embedding.OllamaURL = v
		c.Chat.OllamaURL = v
	}
	if v := os.Getenv("CODERAG_CHAT_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("CODERAG_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchSize = n
		}
	}
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every ValidationError found.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.StorageDir == "" || strings.ContainsAny(c.StorageDir, `/\`) {
		errs = append(errs, ValidationError{"storage_dir", fmt.Sprintf("must be a single directory name, got %q", c.StorageDir)})
	}
	switch c.Backend {
	case "", "gob", "sqlite":
	default:
		errs = append(errs, ValidationError{"backend", fmt.Sprintf("invalid backend %q, must be one of: gob, sqlite", c.Backend)})
	}
	if len(c.Extensions) == 0 {
		errs = append(errs, ValidationError{"extensions", "at least one extension is required"})
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, ValidationError{"max_file_size", "must be positive"})
	}
	if c.BatchSize <= 0 {
		errs = append(errs, ValidationError{"batch_size", "must be positive"})
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, ValidationError{"log_level", err.Error()})
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "ollama", "openai", "none":
	case "hash":
		if c.Embedding.Dimension <= 0 {
			errs = append(errs, ValidationError{"embedding.dimension", "must be positive for the hash provider"})
		}
	default:
		errs = append(errs, ValidationError{"embedding.provider", fmt.Sprintf("invalid provider %q, must be one of: ollama, openai, hash, none", c.Embedding.Provider)})
	}
	if c.Embedding.CacheSize < 0 {
		errs = append(errs, ValidationError{"embedding.cache_size", "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ResolveStorePath returns the absolute artifact path for an indexed root.
func (c *Config) ResolveStorePath(root string) string {
	p := c.StorePath
	if p == "" {
		ext := ".gob"
		if c.Backend == "sqlite" {
			ext = ".db"
		}
		p = filepath.Join(c.StorageDir, "index"+ext)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	return p
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger builds the text logger used across the CLI, writing to stderr.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
