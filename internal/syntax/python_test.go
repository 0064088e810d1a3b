package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `import os

def foo():
    pass

class Bar:
    """Docstring."""

    def m(self):
        return 1

    @staticmethod
    def s():
        def inner():
            pass
        return inner

async def fetch():
    await something()
`

func names(defs []Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = string(d.Kind) + ":" + d.Name
	}
	return out
}

func TestParse_CollectsEveryDefinition(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"function:foo",
		"class:Bar",
		"function:m",
		"function:s",
		"function:inner",
		"function:fetch",
	}, names(f.Definitions))
}

func TestParse_LineSpans(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	spans := map[string][2]int{}
	for _, d := range f.Definitions {
		spans[d.Name] = [2]int{d.StartLine, d.EndLine}
	}

	assert.Equal(t, [2]int{3, 4}, spans["foo"])
	assert.Equal(t, [2]int{6, 16}, spans["Bar"])
	assert.Equal(t, [2]int{9, 10}, spans["m"])
	// Decorators are not part of the definition span.
	assert.Equal(t, [2]int{13, 16}, spans["s"])
	assert.Equal(t, [2]int{14, 15}, spans["inner"])
	assert.Equal(t, [2]int{18, 19}, spans["fetch"])
}

func TestParse_ClassMethods(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	var bar *Definition
	for i := range f.Definitions {
		if f.Definitions[i].Name == "Bar" {
			bar = &f.Definitions[i]
		}
	}
	require.NotNil(t, bar)

	// inner is nested in s, not a direct statement of the class body.
	assert.Equal(t, []string{"function:m", "function:s"}, names(bar.Methods))
}

func TestParse_SingleLineDefinition(t *testing.T) {
	f, err := Parse([]byte("def foo(): pass"))
	require.NoError(t, err)
	require.Len(t, f.Definitions, 1)

	d := f.Definitions[0]
	assert.Equal(t, 1, d.StartLine)
	assert.Equal(t, 1, d.EndLine)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Definitions)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unclosed paren", "def broken(:\n    pass\n"},
		{"missing colon", "class A\n    pass\n"},
		{"invalid utf-8", "x = '\xff\xfe'\n"},
		{"python 2 print", "print \"hello\"\n\ndef f():\n    return 1\n"},
		{"python 2 exec", "exec \"x=1\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestParse_Python3PrintAndExecCalls(t *testing.T) {
	f, err := Parse([]byte("print(\"hello\")\nexec(\"x=1\")\n\ndef f():\n    print(1)\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"function:f"}, names(f.Definitions))
}

func TestParse_TrailingCommentsNotInSpan(t *testing.T) {
	src := `def f():
    x = 1
    # trailing

y = 2

class A:
    def m(self):
        if y:
            return 1
        # after the if
    # after m
# module level
`
	f, err := Parse([]byte(src))
	require.NoError(t, err)

	spans := map[string][2]int{}
	for _, d := range f.Definitions {
		spans[d.Name] = [2]int{d.StartLine, d.EndLine}
	}
	assert.Equal(t, [2]int{1, 2}, spans["f"])
	assert.Equal(t, [2]int{7, 10}, spans["A"])
	assert.Equal(t, [2]int{8, 10}, spans["m"])
}
