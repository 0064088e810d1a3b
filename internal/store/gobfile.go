package store

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// artifactVersion is bumped whenever the gob layout changes.
const artifactVersion = 1

type artifact struct {
	Version    int
	Documents  []string
	Metadata   []Metadata
	Embeddings [][]float32
	Dimension  int
}

// FileBackend stores a Snapshot as one gob-encoded file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for the artifact at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Load() (*Snapshot, error) {
	f, err := os.Open(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var a artifact
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCorrupt, err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, a.Version)
	}

	s := &Snapshot{
		Documents:  a.Documents,
		Metadata:   a.Metadata,
		Embeddings: a.Embeddings,
		Dimension:  a.Dimension,
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}

// Save writes a temp file next to the artifact and renames it into place, so
// readers see either the old or the new artifact.
func (b *FileBackend) Save(s *Snapshot) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	err = gob.NewEncoder(w).Encode(artifact{
		Version:    artifactVersion,
		Documents:  s.Documents,
		Metadata:   s.Metadata,
		Embeddings: s.Embeddings,
		Dimension:  s.Dimension,
	})
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	return os.Rename(tmpName, b.path)
}

func (b *FileBackend) Close() error { return nil }
