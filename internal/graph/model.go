// Package graph builds the structural graph of an indexed tree: file, class
// and function entities connected by "defines" edges.
//
// The graph is rebuilt from scratch on every pass and kept in memory. It is a
// diagnostic view; retrieval does not read it.
package graph

// Kind is the type of an entity.
type Kind string

const (
	KindFile     Kind = "file"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
)

// Label is the type of an edge.
type Label string

// LabelDefines is the only label produced: a file or class defining a child.
const LabelDefines Label = "defines"

// Entity is a node of the structural graph.
type Entity struct {
	// ID is FilePath for files and "FilePath:Name" otherwise.
	ID   string
	Name string
	Kind Kind
	// FilePath is relative to the indexed root and slash separated.
	FilePath string
	// Line is the 1-based definition line, 0 for files.
	Line int
}

// Edge is a directed edge from Parent to Child.
type Edge struct {
	Parent string
	Child  string
	Label  Label
}

// Summary holds aggregate counts for diagnostics.
type Summary struct {
	Entities int `json:"entities"`
	Edges    int `json:"edges"`
	Files    int `json:"files"`
}

// EntityID returns the ID an entity of the given kind receives.
func EntityID(kind Kind, filePath, name string) string {
	if kind == KindFile {
		return filePath
	}
	return filePath + ":" + name
}

// NewEntity creates an entity with its ID filled in.
func NewEntity(name string, kind Kind, filePath string, line int) Entity {
	return Entity{
		ID:       EntityID(kind, filePath, name),
		Name:     name,
		Kind:     kind,
		FilePath: filePath,
		Line:     line,
	}
}
