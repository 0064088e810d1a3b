package chunker

import (
	"fmt"
	"log/slog"
	"strings"

	"coderag/internal/syntax"
)

// Kind is the kind of a chunk.
type Kind string

const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindRaw      Kind = "raw"
)

// fallbackSpan is added to the start line when a definition has no end line.
const fallbackSpan = 10

// parse is replaced in tests.
var parse = syntax.Parse

// Chunk is a contiguous slice of a source file.
type Chunk struct {
	// Content is lines StartLine..EndLine of the file joined by "\n".
	Content  string
	FilePath string
	// StartLine and EndLine are 1-based and inclusive.
	StartLine int
	EndLine   int
	Kind      Kind
	Name      string
}

// Chunker slices Python files into definition-aligned chunks.
type Chunker struct {
	logger *slog.Logger
}

// New returns a Chunker logging to logger, or slog.Default when nil.
func New(logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{logger: logger}
}

// ChunkFile returns one chunk per class or function definition in src,
// nested definitions and methods included. Module-level statements outside
// any definition are not chunked.
//
// Source that does not parse becomes a single raw chunk spanning the whole
// file. An unexpected failure while chunking yields no chunks for this file.
func (c *Chunker) ChunkFile(path string, src []byte) (chunks []Chunk) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("chunking failed", "path", path, "error", fmt.Sprint(r))
			chunks = nil
		}
	}()

	lines := splitLines(string(src))

	parsed, err := parse(src)
	if err != nil {
		c.logger.Debug("falling back to raw chunk", "path", path, "error", err)
		return fallback(path, lines)
	}

	for _, def := range parsed.Definitions {
		start := def.StartLine
		end := def.EndLine
		if end == 0 {
			end = start + fallbackSpan
		}
		if end > len(lines) {
			end = len(lines)
		}
		if start > end {
			continue
		}

		kind := KindFunction
		if def.Kind == syntax.KindClass {
			kind = KindClass
		}
		chunks = append(chunks, Chunk{
			Content:   strings.Join(lines[start-1:end], "\n"),
			FilePath:  path,
			StartLine: start,
			EndLine:   end,
			Kind:      kind,
			Name:      def.Name,
		})
	}
	return chunks
}

func fallback(path string, lines []string) []Chunk {
	if len(lines) == 0 {
		return nil
	}
	return []Chunk{{
		Content:   strings.Join(lines, "\n"),
		FilePath:  path,
		StartLine: 1,
		EndLine:   len(lines),
		Kind:      KindRaw,
		Name:      string(KindRaw),
	}}
}

// splitLines splits text on "\n", dropping a trailing "\r" from each line.
// A final line terminator does not start an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
