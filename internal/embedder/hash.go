package embedder

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is an offline embedder based on feature hashing: each
// identifier-like token and each token bigram is hashed into one of dim
// buckets with a hash-derived sign. Vectors are L2-normalized.
//
// It needs no model or network and is deterministic, which makes it the
// provider of choice for tests and air-gapped use.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns a hashing embedder producing dim-length vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

// Model identifies the embedder and its dimension.
func (e *HashEmbedder) Model() string { return fmt.Sprintf("hash-%d", e.dim) }

// Embed never fails.
func (e *HashEmbedder) Embed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		e.add(v, tok, 1)
		if i > 0 {
			e.add(v, tokens[i-1]+" "+tok, 0.5)
		}
	}
	l2normalize(v)
	return v
}

func (e *HashEmbedder) add(v []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := sum % uint64(e.dim)
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

// tokenize splits on anything that is not a letter, digit or underscore and
// lowercases the result.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// l2normalize normalizes a vector to unit length in place.
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
