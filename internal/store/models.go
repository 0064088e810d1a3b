package store

import "errors"

var (
	// ErrCorrupt is wrapped by load errors for an artifact that exists but
	// cannot be restored. It is not recoverable.
	ErrCorrupt = errors.New("store artifact is corrupt")
	// ErrDimensionMismatch is returned when a vector's length differs from the
	// store's established dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Metadata describes where a stored document came from.
type Metadata struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
}

// Result is one ranked match returned by Query.
type Result struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}

// State is the lifecycle state of an Index.
type State int

const (
	// StateEmpty holds no embedded records yet.
	StateEmpty State = iota
	// StateDegraded has no embedding capability; queries return nothing.
	StateDegraded
	// StatePopulated has at least one embedded record.
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDegraded:
		return "degraded"
	case StatePopulated:
		return "populated"
	}
	return "unknown"
}

// Snapshot is the persisted state of an Index.
//
// Documents and Metadata are index-aligned. Embeddings covers a prefix of
// Documents: row i is the vector of document i. It is nil when nothing has
// been embedded.
type Snapshot struct {
	Documents  []string
	Metadata   []Metadata
	Embeddings [][]float32
	Dimension  int
}

// validate checks the lockstep and dimension invariants.
func (s *Snapshot) validate() error {
	if len(s.Documents) != len(s.Metadata) {
		return errors.New("documents and metadata differ in length")
	}
	if len(s.Embeddings) > len(s.Documents) {
		return errors.New("more embeddings than documents")
	}
	if len(s.Embeddings) > 0 && s.Dimension == 0 {
		s.Dimension = len(s.Embeddings[0])
	}
	for _, v := range s.Embeddings {
		if len(v) != s.Dimension || len(v) == 0 {
			return ErrDimensionMismatch
		}
	}
	return nil
}
