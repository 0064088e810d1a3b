// Package syntax parses Python source with tree-sitter and reports the class
// and function definitions it contains.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrParse is wrapped by every error Parse returns for bad input.
var ErrParse = errors.New("parse failed")

// Kind is the kind of a definition.
type Kind string

const (
	KindClass    Kind = "class"
	KindFunction Kind = "function"
)

// tree-sitter-python node types.
const (
	nodeClass     = "class_definition"
	nodeFunction  = "function_definition"
	nodeDecorated = "decorated_definition"
	nodeComment   = "comment"
)

// Python 2 statements the grammar still accepts but Python 3 rejects.
var legacyStatements = map[string]bool{
	"print_statement": true,
	"exec_statement":  true,
}

// Definition is a class or function definition.
type Definition struct {
	Kind Kind
	Name string
	// StartLine and EndLine are 1-based and inclusive. EndLine is 0 when the
	// parser could not report a usable end position.
	StartLine int
	EndLine   int
	// Methods holds the function definitions written directly in a class
	// body, decorated ones included. Always empty for functions.
	Methods []Definition
}

// File is the result of parsing one source file.
type File struct {
	// Definitions lists every class and function definition in the file,
	// nested ones included, in pre-order source order.
	Definitions []Definition
}

// Parse parses src as Python 3. Input that is not valid UTF-8, that the
// grammar cannot parse without error nodes, or that uses the Python 2 print
// or exec statements yields an error wrapping ErrParse.
func Parse(src []byte) (*File, error) {
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("%w: invalid utf-8", ErrParse)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := firstInvalid(root); bad != nil {
		p := bad.StartPoint()
		return nil, fmt.Errorf("%w: invalid syntax at line %d column %d", ErrParse, p.Row+1, p.Column+1)
	}
	if root.HasError() {
		return nil, fmt.Errorf("%w: invalid syntax", ErrParse)
	}

	return &File{Definitions: collect(root, src)}, nil
}

// collect walks the whole tree with an explicit stack and returns every
// definition node in pre-order.
func collect(root *sitter.Node, src []byte) []Definition {
	var defs []Definition
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Type() {
		case nodeClass:
			d := definition(n, KindClass, src)
			d.Methods = methods(n, src)
			defs = append(defs, d)
		case nodeFunction:
			defs = append(defs, definition(n, KindFunction, src))
		}

		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.NamedChild(i))
		}
	}
	return defs
}

// methods returns the function definitions that are direct statements of a
// class body.
func methods(class *sitter.Node, src []byte) []Definition {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []Definition
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == nodeDecorated {
			stmt = stmt.ChildByFieldName("definition")
			if stmt == nil {
				continue
			}
		}
		if stmt.Type() == nodeFunction {
			out = append(out, definition(stmt, KindFunction, src))
		}
	}
	return out
}

func definition(n *sitter.Node, kind Kind, src []byte) Definition {
	d := Definition{
		Kind:      kind,
		StartLine: int(n.StartPoint().Row) + 1,
	}
	if name := n.ChildByFieldName("name"); name != nil {
		d.Name = name.Content(src)
	}

	// Comments trailing a block belong to it in the tree but not to the
	// definition's span.
	start, end := n.StartPoint(), lastCode(n).EndPoint()
	switch {
	case end.Row < start.Row:
		// no usable end position
	case end.Column == 0 && end.Row > start.Row:
		// The node ends at the start of the next line.
		d.EndLine = int(end.Row)
	default:
		d.EndLine = int(end.Row) + 1
	}
	return d
}

// lastCode follows the last non-comment child down from n and returns the
// deepest node reached.
func lastCode(n *sitter.Node) *sitter.Node {
	for {
		var next *sitter.Node
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if c := n.Child(i); c.Type() != nodeComment {
				next = c
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}

// firstInvalid returns the first node in pre-order that is an error, a
// missing token or a Python 2 only statement.
func firstInvalid(root *sitter.Node) *sitter.Node {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type() == "ERROR" || n.IsMissing() || legacyStatements[n.Type()] {
			return n
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}
	}
	return nil
}
