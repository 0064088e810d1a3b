package index

import (
	"fmt"

	"coderag/internal/chunker"
	"coderag/internal/graph"
	"coderag/internal/store"
	"coderag/internal/walker"
)

// batcher accumulates chunks and flushes them to the store in fixed-size
// batches.
type batcher struct {
	st      *store.Index
	size    int
	pending []chunker.Chunk
	flushed int
}

func (b *batcher) add(chunks []chunker.Chunk) error {
	b.pending = append(b.pending, chunks...)
	for len(b.pending) >= b.size {
		if err := b.write(b.pending[:b.size]); err != nil {
			return err
		}
		b.pending = b.pending[b.size:]
	}
	return nil
}

func (b *batcher) flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	err := b.write(b.pending)
	b.pending = nil
	return err
}

func (b *batcher) write(batch []chunker.Chunk) error {
	if err := b.st.Add(batch); err != nil {
		return fmt.Errorf("store batch at chunk %d: %w", b.flushed, err)
	}
	b.flushed += len(batch)
	return nil
}

// runPipeline processes files in scan order: structure pass, then chunking,
// then batched store writes.
func runPipeline(files []walker.SourceFile, st *store.Index, opts Options) (*Stats, *graph.Graph, error) {
	stats := &Stats{FilesTotal: len(files)}
	g := graph.New()
	builder := graph.NewBuilder(opts.Logger)
	chk := chunker.New(opts.Logger)
	out := &batcher{st: st, size: opts.BatchSize}

	for i, f := range files {
		if err := builder.AddFile(g, f.RelPath, f.Content); err != nil {
			opts.Logger.Warn("skipping file in structure pass", "path", f.RelPath, "error", err)
			stats.FilesSkipped++
		} else {
			stats.FilesParsed++
		}

		chunks := chk.ChunkFile(f.RelPath, f.Content)
		stats.ChunksTotal += len(chunks)
		if err := out.add(chunks); err != nil {
			return stats, g, err
		}

		if opts.OnProgress != nil {
			opts.OnProgress("Indexing files...", i+1, len(files))
		}
	}

	if err := out.flush(); err != nil {
		return stats, g, err
	}
	return stats, g, nil
}
