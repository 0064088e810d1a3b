package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteBackend stores a Snapshot in a SQLite database. Vectors are kept as
// sqlite-vec float32 blobs.
//
// Records are append-only, so Save inserts only the rows past what the
// database already holds, inside one transaction.
type SQLiteBackend struct {
	path string
	db   *sql.DB
}

// NewSQLiteBackend returns a backend for the database at path. The file is
// not created until the first Save.
func NewSQLiteBackend(path string) *SQLiteBackend {
	return &SQLiteBackend{path: path}
}

func (b *SQLiteBackend) open() error {
	if b.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", b.path+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return fmt.Errorf("init schema: %w", err)
	}
	b.db = db
	return nil
}

func (b *SQLiteBackend) Load() (*Snapshot, error) {
	if _, err := os.Stat(b.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if err := b.open(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if v, err := b.getMeta("schema_version"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	} else if v != "" && v != schemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %s", ErrCorrupt, v)
	}

	s := &Snapshot{}
	if err := b.loadDocuments(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := b.loadEmbeddings(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if dim, err := b.getMeta("dimension"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	} else if dim != "" {
		if s.Dimension, err = strconv.Atoi(dim); err != nil {
			return nil, fmt.Errorf("%w: bad dimension %q", ErrCorrupt, dim)
		}
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}

func (b *SQLiteBackend) loadDocuments(s *Snapshot) error {
	rows, err := b.db.Query("SELECT seq, content, file_path, start_line, end_line, kind, name FROM documents ORDER BY seq")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int
		var m Metadata
		var content string
		if err := rows.Scan(&seq, &content, &m.FilePath, &m.StartLine, &m.EndLine, &m.Kind, &m.Name); err != nil {
			return err
		}
		if seq != len(s.Documents) {
			return fmt.Errorf("document sequence gap at %d", seq)
		}
		s.Documents = append(s.Documents, content)
		s.Metadata = append(s.Metadata, m)
	}
	return rows.Err()
}

func (b *SQLiteBackend) loadEmbeddings(s *Snapshot) error {
	rows, err := b.db.Query("SELECT seq, vec_length(vector), vector FROM embeddings ORDER BY seq")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var seq, n int
		var blob []byte
		if err := rows.Scan(&seq, &n, &blob); err != nil {
			return err
		}
		if seq != len(s.Embeddings) {
			return fmt.Errorf("embedding sequence gap at %d", seq)
		}
		v, err := deserializeFloat32(blob)
		if err != nil {
			return err
		}
		if len(v) != n {
			return fmt.Errorf("embedding %d: length %d, vec_length %d", seq, len(v), n)
		}
		s.Embeddings = append(s.Embeddings, v)
	}
	return rows.Err()
}

func (b *SQLiteBackend) Save(s *Snapshot) error {
	if err := b.open(); err != nil {
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var docCount, embCount int
	if err := tx.QueryRow("SELECT COUNT(*) FROM documents").Scan(&docCount); err != nil {
		return err
	}
	if err := tx.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&embCount); err != nil {
		return err
	}
	if docCount > len(s.Documents) || embCount > len(s.Embeddings) {
		return fmt.Errorf("database holds more rows than the snapshot (%d/%d documents, %d/%d embeddings)",
			docCount, len(s.Documents), embCount, len(s.Embeddings))
	}

	docStmt, err := tx.Prepare(
		"INSERT INTO documents (seq, content, file_path, start_line, end_line, kind, name) VALUES (?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer docStmt.Close()

	for i := docCount; i < len(s.Documents); i++ {
		m := s.Metadata[i]
		if _, err := docStmt.Exec(i, s.Documents[i], m.FilePath, m.StartLine, m.EndLine, m.Kind, m.Name); err != nil {
			return fmt.Errorf("insert document %d: %w", i, err)
		}
	}

	embStmt, err := tx.Prepare("INSERT INTO embeddings (seq, vector) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer embStmt.Close()

	for i := embCount; i < len(s.Embeddings); i++ {
		blob, err := sqlite_vec.SerializeFloat32(s.Embeddings[i])
		if err != nil {
			return fmt.Errorf("serialize embedding %d: %w", i, err)
		}
		if _, err := embStmt.Exec(i, blob); err != nil {
			return fmt.Errorf("insert embedding %d: %w", i, err)
		}
	}

	for key, value := range map[string]string{
		"schema_version": schemaVersion,
		"dimension":      strconv.Itoa(s.Dimension),
	} {
		if _, err := tx.Exec(
			"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, value,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) getMeta(key string) (string, error) {
	var value string
	err := b.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// deserializeFloat32 is the inverse of sqlite_vec.SerializeFloat32.
func deserializeFloat32(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}
