package graph

import "sort"

// Graph is an in-memory directed graph of entities.
//
// Entities are keyed by ID and re-adding an ID overwrites the entity.
// Edges are kept per parent in insertion order; duplicates between the same
// pair are retained and counted.
type Graph struct {
	entities map[string]Entity
	edges    map[string][]Edge
	numEdges int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		entities: make(map[string]Entity),
		edges:    make(map[string][]Edge),
	}
}

// AddEntity inserts or replaces e.
func (g *Graph) AddEntity(e Entity) {
	g.entities[e.ID] = e
}

// AddEdge appends an edge from parent to child.
func (g *Graph) AddEdge(parent, child string, label Label) {
	g.edges[parent] = append(g.edges[parent], Edge{Parent: parent, Child: child, Label: label})
	g.numEdges++
}

// Entity returns the entity with the given ID.
func (g *Graph) Entity(id string) (Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// Edges returns the outgoing edges of id, duplicates included.
func (g *Graph) Edges(id string) []Edge {
	out := make([]Edge, len(g.edges[id]))
	copy(out, g.edges[id])
	return out
}

// Definitions returns the distinct entities directly connected from id, in
// the order their first edge was added. An unknown id yields nil.
func (g *Graph) Definitions(id string) []Entity {
	var out []Entity
	seen := make(map[string]bool)
	for _, e := range g.edges[id] {
		if seen[e.Child] {
			continue
		}
		seen[e.Child] = true
		if child, ok := g.entities[e.Child]; ok {
			out = append(out, child)
		}
	}
	return out
}

// Files returns the file entities sorted by ID.
func (g *Graph) Files() []Entity {
	var files []Entity
	for _, e := range g.entities {
		if e.Kind == KindFile {
			files = append(files, e)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files
}

// Summary returns entity, edge and file counts.
func (g *Graph) Summary() Summary {
	s := Summary{Entities: len(g.entities), Edges: g.numEdges}
	for _, e := range g.entities {
		if e.Kind == KindFile {
			s.Files++
		}
	}
	return s
}
