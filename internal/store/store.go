package store

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"coderag/internal/chunker"
)

// Embedder turns a batch of texts into vectors, one per text, in order.
type Embedder interface {
	Embed(texts []string) ([][]float32, error)
}

// Backend persists a Snapshot as a single artifact.
type Backend interface {
	// Load returns the stored snapshot, or nil when no artifact exists.
	Load() (*Snapshot, error)
	// Save replaces the artifact with s. A failed Save leaves the previous
	// artifact loadable.
	Save(s *Snapshot) error
	Close() error
}

// Option configures Open.
type Option func(*options)

type options struct {
	backend string
	logger  *slog.Logger
}

// WithBackend selects "gob" or "sqlite". By default the backend is inferred
// from the path extension: .db, .sqlite and .sqlite3 use SQLite.
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Index is an append-only store of chunk documents, their metadata and their
// embeddings, answering cosine-similarity queries.
//
// Records are never updated or deleted. The full state is persisted after
// every Add. An Index opened without an Embedder is degraded: it keeps
// accepting records but queries return nothing.
type Index struct {
	mu      sync.Mutex
	path    string
	backend Backend
	enc     Embedder
	logger  *slog.Logger

	docs  []string
	metas []Metadata
	vecs  [][]float32
	dim   int
}

// Open loads the store at path, or starts empty when no artifact exists.
// A corrupt artifact yields an error wrapping ErrCorrupt. enc may be nil.
func Open(path string, enc Embedder, opts ...Option) (*Index, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var backend Backend
	switch name := backendFor(path, o.backend); name {
	case "gob":
		backend = NewFileBackend(path)
	case "sqlite":
		backend = NewSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", name)
	}

	snap, err := backend.Load()
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("load store %s: %w", path, err)
	}

	ix := &Index{
		path:    path,
		backend: backend,
		enc:     enc,
		logger:  o.logger,
	}
	if snap != nil {
		ix.docs = snap.Documents
		ix.metas = snap.Metadata
		ix.vecs = snap.Embeddings
		ix.dim = snap.Dimension
	}
	if enc == nil {
		ix.logger.Warn("no embedding capability, store is degraded", "path", path)
	}
	ix.logger.Debug("store opened", "path", path, "records", len(ix.docs), "embedded", len(ix.vecs), "state", ix.stateLocked())
	return ix, nil
}

func backendFor(path, explicit string) string {
	if explicit != "" {
		return explicit
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	}
	return "gob"
}

// Path returns the artifact path.
func (ix *Index) Path() string { return ix.path }

// Len returns the number of stored records.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.docs)
}

// Embedded returns the number of records that have a vector.
func (ix *Index) Embedded() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.vecs)
}

// Dimension returns the vector length, or 0 before the first embedding.
func (ix *Index) Dimension() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.dim
}

// State reports the lifecycle state.
func (ix *Index) State() State {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.stateLocked()
}

func (ix *Index) stateLocked() State {
	switch {
	case ix.enc == nil:
		return StateDegraded
	case len(ix.vecs) == 0:
		return StateEmpty
	}
	return StatePopulated
}

// Add appends chunks in order and persists the store. An empty slice is a
// no-op.
//
// With an embedder, every record still lacking a vector (including records
// left by earlier degraded runs or failed batches) is embedded together with
// the new ones. Embedding failures are logged and leave those records
// unembedded; only a persistence failure is returned.
func (ix *Index) Add(chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, c := range chunks {
		ix.docs = append(ix.docs, c.Content)
		ix.metas = append(ix.metas, Metadata{
			FilePath:  c.FilePath,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Kind:      string(c.Kind),
			Name:      c.Name,
		})
	}

	if ix.enc != nil {
		if err := ix.embedPending(); err != nil {
			ix.logger.Warn("embedding batch failed, records kept without vectors",
				"pending", len(ix.docs)-len(ix.vecs), "error", err)
		}
	}

	if err := ix.backend.Save(ix.snapshotLocked()); err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	ix.logger.Debug("store updated", "added", len(chunks), "records", len(ix.docs), "embedded", len(ix.vecs))
	return nil
}

// embedPending embeds documents from len(vecs) on and appends their vectors
// only if the whole batch is valid.
func (ix *Index) embedPending() error {
	pending := ix.docs[len(ix.vecs):]
	if len(pending) == 0 {
		return nil
	}

	embs, err := ix.enc.Embed(pending)
	if err != nil {
		return err
	}
	if len(embs) != len(pending) {
		return fmt.Errorf("expected %d embeddings, got %d", len(pending), len(embs))
	}

	dim := ix.dim
	for i, v := range embs {
		if len(v) == 0 {
			return fmt.Errorf("empty embedding for record %d", len(ix.vecs)+i)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
		}
	}

	ix.dim = dim
	ix.vecs = append(ix.vecs, embs...)
	return nil
}

func (ix *Index) snapshotLocked() *Snapshot {
	return &Snapshot{
		Documents:  ix.docs,
		Metadata:   ix.metas,
		Embeddings: ix.vecs,
		Dimension:  ix.dim,
	}
}

// Query returns the k records most similar to text by cosine similarity,
// highest score first. Equal scores keep insertion order.
//
// An empty or degraded store, or k <= 0, yields no results and no error.
func (ix *Index) Query(text string, k int) ([]Result, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.enc == nil || len(ix.vecs) == 0 || k <= 0 {
		return []Result{}, nil
	}

	embs, err := ix.enc.Embed([]string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(embs))
	}
	q := embs[0]
	if len(q) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d, store has %d", ErrDimensionMismatch, len(q), ix.dim)
	}

	qNorm := norm(q)
	scores := make([]float64, len(ix.vecs))
	order := make([]int, len(ix.vecs))
	for i, v := range ix.vecs {
		scores[i] = cosine(v, q, qNorm)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	k = min(k, len(order))
	results := make([]Result, k)
	for r, i := range order[:k] {
		results[r] = Result{
			Content:  ix.docs[i],
			Metadata: ix.metas[i],
			Score:    scores[i],
		}
	}
	return results, nil
}

// Close releases the backend.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.backend.Close()
}

// cosine returns dot(v, q) / (|v| * |q|), or 0 when either norm is zero or
// the result is not a number.
func cosine(v, q []float32, qNorm float64) float64 {
	vNorm := norm(v)
	if vNorm == 0 || qNorm == 0 {
		return 0
	}
	var dot float64
	for i := range v {
		dot += float64(v[i]) * float64(q[i])
	}
	if s := dot / (vNorm * qNorm); !math.IsNaN(s) {
		return s
	}
	return 0
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
