package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coderag/internal/walker"
)

func TestEntityID(t *testing.T) {
	assert.Equal(t, "pkg/a.py", EntityID(KindFile, "pkg/a.py", "pkg/a.py"))
	assert.Equal(t, "pkg/a.py:Foo", EntityID(KindClass, "pkg/a.py", "Foo"))
	assert.Equal(t, "pkg/a.py:bar", EntityID(KindFunction, "pkg/a.py", "bar"))
}

func TestGraph_AddEntityReplaces(t *testing.T) {
	g := New()
	g.AddEntity(NewEntity("foo", KindFunction, "a.py", 1))
	g.AddEntity(NewEntity("foo", KindFunction, "a.py", 7))

	e, ok := g.Entity("a.py:foo")
	require.True(t, ok)
	assert.Equal(t, 7, e.Line)
	assert.Equal(t, 1, g.Summary().Entities)
}

func TestGraph_DuplicateEdgesAreCounted(t *testing.T) {
	g := New()
	g.AddEntity(NewEntity("a.py", KindFile, "a.py", 0))
	g.AddEntity(NewEntity("f", KindFunction, "a.py", 1))
	g.AddEdge("a.py", "a.py:f", LabelDefines)
	g.AddEdge("a.py", "a.py:f", LabelDefines)

	assert.Equal(t, 2, g.Summary().Edges)
	assert.Len(t, g.Edges("a.py"), 2)
	assert.Len(t, g.Definitions("a.py"), 1)
}

func TestGraph_DefinitionsUnknownID(t *testing.T) {
	g := New()
	assert.Empty(t, g.Definitions("missing.py"))
}

func TestBuilder_WorkedExample(t *testing.T) {
	src := "def foo(): pass\n\nclass Bar:\n    def m(self):\n        pass\n"

	g := NewBuilder(nil).Build([]walker.SourceFile{{RelPath: "ex.py", Content: []byte(src)}})

	// 1 file + 1 class + 2 functions.
	assert.Equal(t, Summary{Entities: 4, Edges: 4, Files: 1}, g.Summary())

	file, ok := g.Entity("ex.py")
	require.True(t, ok)
	assert.Equal(t, KindFile, file.Kind)
	assert.Equal(t, 0, file.Line)

	bar, ok := g.Entity("ex.py:Bar")
	require.True(t, ok)
	assert.Equal(t, KindClass, bar.Kind)
	assert.Equal(t, 3, bar.Line)

	m, ok := g.Entity("ex.py:m")
	require.True(t, ok)
	assert.Equal(t, KindFunction, m.Kind)
	assert.Equal(t, 4, m.Line)

	// The method hangs off its class and, as well, directly off the file.
	assert.Equal(t, []string{"ex.py:foo", "ex.py:Bar", "ex.py:m"}, ids(g.Definitions("ex.py")))
	assert.Equal(t, []string{"ex.py:m"}, ids(g.Definitions("ex.py:Bar")))
}

func TestBuilder_SameMethodNameInTwoClasses(t *testing.T) {
	src := `class A:
    def __init__(self):
        pass

class B:
    def __init__(self):
        pass
`
	g := NewBuilder(nil).Build([]walker.SourceFile{{RelPath: "ab.py", Content: []byte(src)}})

	s := g.Summary()
	assert.Equal(t, 4, s.Entities, "one entity per id")
	assert.Equal(t, 6, s.Edges)
	assert.Len(t, g.Edges("ab.py"), 4)
	assert.Equal(t, []string{"ab.py:A", "ab.py:__init__", "ab.py:B"}, ids(g.Definitions("ab.py")))
}

func TestBuilder_NestedFunctions(t *testing.T) {
	src := `def outer():
    def inner():
        pass
    return inner
`
	g := NewBuilder(nil).Build([]walker.SourceFile{{RelPath: "n.py", Content: []byte(src)}})

	assert.Equal(t, Summary{Entities: 3, Edges: 2, Files: 1}, g.Summary())
	assert.Equal(t, []string{"n.py:outer", "n.py:inner"}, ids(g.Definitions("n.py")))
}

func TestBuilder_SkipsUnparseableFiles(t *testing.T) {
	files := []walker.SourceFile{
		{RelPath: "good.py", Content: []byte("def ok():\n    return 1\n")},
		{RelPath: "bad.py", Content: []byte("def broken(:\n")},
		{RelPath: "binary.py", Content: []byte{0xff, 0xfe, 0x00}},
	}

	g := NewBuilder(nil).Build(files)

	assert.Equal(t, Summary{Entities: 2, Edges: 1, Files: 1}, g.Summary())
	_, ok := g.Entity("bad.py")
	assert.False(t, ok)
	assert.Equal(t, []Entity{NewEntity("good.py", KindFile, "good.py", 0)}, g.Files())
}

func TestBuilder_EntityCountProperty(t *testing.T) {
	src := `class C:
    def a(self):
        pass

    class Inner:
        def b(self):
            pass

def top():
    pass
`
	g := NewBuilder(nil).Build([]walker.SourceFile{{RelPath: "p.py", Content: []byte(src)}})

	// 1 file + 2 classes + 3 functions.
	assert.Equal(t, 6, g.Summary().Entities)
}

func ids(entities []Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}
