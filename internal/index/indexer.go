package index

import (
	"fmt"
	"log/slog"

	"coderag/internal/graph"
	"coderag/internal/store"
	"coderag/internal/walker"
)

const defaultBatchSize = 64

// Options configures an ingestion run.
type Options struct {
	// Extensions limits the scan to these file extensions, without dots.
	Extensions []string
	// StorageDir is the directory name holding the store; it is never scanned.
	StorageDir string
	// MaxFileSize skips larger files; zero means no limit.
	MaxFileSize int64
	// BatchSize is the number of chunks handed to the store per Add.
	BatchSize  int
	Logger     *slog.Logger
	OnProgress ProgressFunc
}

// ProgressFunc is called after each file with the number of files processed
// so far and the total.
type ProgressFunc func(stage string, done, total int)

// Stats reports ingestion results.
type Stats struct {
	FilesTotal   int
	FilesParsed  int
	FilesSkipped int
	ChunksTotal  int
	Graph        graph.Summary
}

// Ingest scans root, builds the structure graph, chunks every file and adds
// the chunks to st in batches. It runs synchronously.
//
// Files that fail to parse are left out of the graph and chunked as one raw
// chunk. Only scan and store failures abort the run.
func Ingest(root string, st *store.Index, opts Options) (*Stats, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	files, err := walker.Scan(root, walker.Options{
		Extensions:  opts.Extensions,
		StorageDir:  opts.StorageDir,
		MaxFileSize: opts.MaxFileSize,
		Logger:      opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	opts.Logger.Info("scan complete", "root", root, "files", len(files))

	stats, g, err := runPipeline(files, st, opts)
	if err != nil {
		return stats, err
	}

	stats.Graph = g.Summary()
	opts.Logger.Info("structure graph built",
		"files", stats.Graph.Files,
		"entities", stats.Graph.Entities,
		"edges", stats.Graph.Edges)
	opts.Logger.Info("ingestion complete",
		"chunks", stats.ChunksTotal,
		"records", st.Len(),
		"embedded", st.Embedded(),
		"state", st.State())
	return stats, nil
}
