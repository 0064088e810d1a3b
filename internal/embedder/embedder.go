// Package embedder provides the embedding providers the index can use.
//
// Every provider turns a batch of texts into fixed-length vectors, in input
// order, and is deterministic for a fixed model.
package embedder

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"coderag/internal/config"
)

var (
	// ErrNoProvider is returned by New when embeddings are switched off.
	ErrNoProvider = errors.New("no embedding provider configured")
	// ErrUnavailable is returned by New when a provider cannot be reached or
	// is missing credentials.
	ErrUnavailable = errors.New("embedding provider unavailable")
)

// Embedder computes embeddings for a batch of texts.
type Embedder interface {
	// Embed returns one vector per text, in the same order.
	Embed(texts []string) ([][]float32, error)
	// Model names the model behind the vectors.
	Model() string
}

// New builds the provider selected by cfg and wraps it in an LRU cache when
// cfg.CacheSize is positive. Errors wrap ErrNoProvider or ErrUnavailable; the
// caller is expected to continue without embeddings.
func New(cfg config.Embedding, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var e Embedder
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		o := NewOllamaEmbedder(cfg.OllamaURL, cfg.Model)
		if cfg.BatchSize > 0 {
			o.batchSize = cfg.BatchSize
		}
		if err := o.Ping(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		e = o
	case "openai":
		o, err := NewOpenAIEmbedder(cfg.Model, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		e = o
	case "hash":
		e = NewHashEmbedder(cfg.Dimension)
	case "", "none":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProvider, cfg.Provider)
	}

	logger.Debug("embedding provider ready", "provider", cfg.Provider, "model", e.Model())
	if cfg.CacheSize > 0 {
		return NewCached(e, cfg.CacheSize), nil
	}
	return e, nil
}
