package embedder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps an Embedder with an in-memory LRU keyed by content hash, so
// repeated texts (re-ingesting a tree, repeated queries) skip the provider.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with an LRU holding up to size vectors.
func NewCached(inner Embedder, size int) *Cached {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Cached{inner: inner, cache: cache}
}

// Model returns the wrapped model name.
func (c *Cached) Model() string { return c.inner.Model() }

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }

// Embed serves cached vectors and sends only the misses to the wrapped
// embedder, in one batch.
func (c *Cached) Embed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		keys[i] = contentHash(c.inner.Model(), t)
		if v, ok := c.cache.Get(keys[i]); ok {
			out[i] = clone(v)
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		embs, err := c.inner.Embed(missTexts)
		if err != nil {
			return nil, err
		}
		if len(embs) != len(missTexts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(missTexts), len(embs))
		}
		for j, v := range embs {
			i := missIdx[j]
			c.cache.Add(keys[i], clone(v))
			out[i] = v
		}
	}
	return out, nil
}

func contentHash(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
