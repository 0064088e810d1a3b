package graph

import (
	"log/slog"

	"coderag/internal/syntax"
	"coderag/internal/walker"
)

// Builder extracts the structural graph from source files.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a Builder logging to logger, or slog.Default when nil.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// Build parses every file and returns a fresh graph. Files that fail to
// parse are logged and left out.
func (b *Builder) Build(files []walker.SourceFile) *Graph {
	g := New()
	for _, f := range files {
		if err := b.AddFile(g, f.RelPath, f.Content); err != nil {
			b.logger.Warn("skipping file in structure pass", "path", f.RelPath, "error", err)
		}
	}
	return g
}

// AddFile parses src and adds the file's entities and edges to g.
//
// Every function definition in the tree gets a file→function edge, methods
// included, so a method is reachable both from its class and from its file.
// Its entity is stored once under its ID.
func (b *Builder) AddFile(g *Graph, relPath string, src []byte) error {
	parsed, err := syntax.Parse(src)
	if err != nil {
		return err
	}

	file := NewEntity(relPath, KindFile, relPath, 0)
	g.AddEntity(file)

	for _, def := range parsed.Definitions {
		switch def.Kind {
		case syntax.KindClass:
			class := NewEntity(def.Name, KindClass, relPath, def.StartLine)
			g.AddEntity(class)
			g.AddEdge(file.ID, class.ID, LabelDefines)
			for _, m := range def.Methods {
				fn := NewEntity(m.Name, KindFunction, relPath, m.StartLine)
				g.AddEntity(fn)
				g.AddEdge(class.ID, fn.ID, LabelDefines)
			}
		case syntax.KindFunction:
			fn := NewEntity(def.Name, KindFunction, relPath, def.StartLine)
			g.AddEntity(fn)
			g.AddEdge(file.ID, fn.ID, LabelDefines)
		}
	}

	b.logger.Debug("structure extracted", "path", relPath, "definitions", len(parsed.Definitions))
	return nil
}
