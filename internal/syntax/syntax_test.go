package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, name, src string) *File {
	t.Helper()
	file, err := NewTreeSitterParser().Parse(context.Background(), name, []byte(src))
	require.NoError(t, err)
	return file
}

func TestPrintRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		file string
		src  string
	}{
		{
			name: "plain javascript",
			file: "a.js",
			src: `// leading comment
const items = [1, 2, 3];

function visit(x) {
    console.log(x) // trailing
}
`,
		},
		{
			name: "leading and trailing whitespace",
			file: "b.js",
			src:  "\n\n  let a = `template ${1 + 2}`;\n\n\n",
		},
		{
			name: "typescript with types",
			file: "c.ts",
			src: `interface Item { id: number }
export function handle(el: Item, i: number): void {
	if (el.id > i) { return }
}
`,
		},
		{
			name: "tsx",
			file: "d.tsx",
			src:  "const v = <div className=\"x\">{items.map(i => <span>{i}</span>)}</div>;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := parse(t, tt.file, tt.src)
			assert.Equal(t, tt.src, file.String())
			assert.Equal(t, tt.src, file.Clone().String())
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	file := parse(t, "a.js", "items.forEach(x => { return; });\n")
	clone := file.Clone()

	var ret *Node
	file.Walk(func(n *Node) bool {
		if n.Kind() == "return_statement" {
			ret = n
		}
		return true
	})
	require.NotNil(t, ret)
	require.True(t, ret.Replace(Leaf("continue_statement", "continue;")))

	assert.Equal(t, "items.forEach(x => { continue; });\n", file.String())
	assert.Equal(t, "items.forEach(x => { return; });\n", clone.String())
}

func TestClonePreservesPositions(t *testing.T) {
	file := parse(t, "a.js", "a();\n  items.forEach(f);\n")
	clone := file.Clone()

	collect := func(f *File) []Position {
		var out []Position
		f.Walk(func(n *Node) bool {
			if n.Kind() == "call_expression" {
				out = append(out, n.Pos())
			}
			return true
		})
		return out
	}

	original := collect(file)
	require.Len(t, original, 2)
	assert.Equal(t, original, collect(clone))
	assert.Equal(t, Position{Offset: 7, Line: 2, Column: 3}, original[1])
}

func TestRewriteIsPostOrder(t *testing.T) {
	file := parse(t, "a.js", "f(g(h()));\n")

	var order []string
	file.Rewrite(func(n *Node) *Node {
		if n.Kind() != "call_expression" {
			return n
		}
		order = append(order, n.ChildByField("function").Text())
		if n.ChildByField("function").Text() == "g" {
			return Leaf("identifier", "x")
		}
		return n
	})

	assert.Equal(t, []string{"h", "g", "f"}, order)
	assert.Equal(t, "f(x);\n", file.String())
}

func TestNewMovesChildren(t *testing.T) {
	file := parse(t, "a.js", "call(arg);\n")

	var arg *Node
	file.Walk(func(n *Node) bool {
		if n.Kind() == "identifier" && n.Text() == "arg" {
			arg = n
		}
		return true
	})
	require.NotNil(t, arg)

	wrapped := New("parenthesized_expression", "(", arg.Clone(), ")")
	assert.Equal(t, "(arg)", wrapped.Text())
	assert.Equal(t, "call(arg);\n", file.String())

	moved := New("parenthesized_expression", "(", arg, ")")
	assert.Equal(t, "(arg)", moved.Text())
	assert.Same(t, moved, arg.Parent())
	assert.Equal(t, "call();\n", file.String())
}

func TestFunctionLookup(t *testing.T) {
	file := parse(t, "a.ts", `function one(a) {}
export function two(a: number, b: string) {}
function* three(a, b, c) {}
const four = function (a) {};
function wrapper() {
	function nested(a, b) {}
}
`)

	tests := []struct {
		name   string
		found  bool
		params int
	}{
		{"one", true, 1},
		{"two", true, 2},
		{"three", true, 3},
		{"four", false, 0},
		{"nested", false, 0},
		{"missing", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl, ok := file.Function(tt.name)
			assert.Equal(t, tt.found, ok)
			if !tt.found {
				return
			}
			params := decl.ChildByField("parameters")
			require.NotNil(t, params)
			assert.Len(t, params.NamedChildren(), tt.params)
		})
	}
}

func TestIdentifiers(t *testing.T) {
	file := parse(t, "a.js", "const _el = obj.prop; loop: for (;;) { break loop; }\n")
	names := file.Identifiers()

	for _, want := range []string{"_el", "obj", "prop", "loop"} {
		assert.Contains(t, names, want)
	}
	assert.NotContains(t, names, "const")
}

func TestIndent(t *testing.T) {
	src := "function f() {\n\t  items.forEach(g);\n}\n"
	file := parse(t, "a.js", src)

	var call *Node
	file.Walk(func(n *Node) bool {
		if n.Kind() == "call_expression" {
			call = n
		}
		return true
	})
	require.NotNil(t, call)
	assert.Equal(t, "\t  ", file.Indent(call.Pos()))
	assert.Equal(t, "", file.Indent(Position{}))
}

func TestIndentUnit(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"flat", "a();\nb();\n", ""},
		{"two spaces", "function f() {\n  if (x) {\n    g();\n  }\n}\n", "  "},
		{"four spaces", "function f() {\n    g();\n}\nfunction h() {\n    i();\n}\n", "    "},
		{"tabs", "function f() {\n\tif (x) {\n\t\tg();\n\t}\n}\n", "\t"},
		{"doc comment continuation", "/**\n * doc\n */\nfunction f() {\n  g();\n}\n", "  "},
		{"most common step wins", "f({\n        a: 1,\n});\nfunction g() {\n  h();\n  if (x) {\n    i();\n  }\n}\n", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parse(t, "a.js", tt.src).IndentUnit())
		})
	}
}

func TestParseError(t *testing.T) {
	_, err := NewTreeSitterParser().Parse(context.Background(), "bad.js", []byte("let x = ;\nfoo(\n"))
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "bad.js", parseErr.File)
	assert.Positive(t, parseErr.Line)
}

func TestLanguageFor(t *testing.T) {
	tests := []struct {
		path string
		lang Language
		ok   bool
	}{
		{"a.js", JavaScript, true},
		{"a.MJS", JavaScript, true},
		{"a.jsx", JavaScript, true},
		{"a.ts", TypeScript, true},
		{"a.cts", TypeScript, true},
		{"a.tsx", TSX, true},
		{"a.go", "", false},
		{"-", "", false},
	}
	for _, tt := range tests {
		lang, ok := LanguageFor(tt.path)
		assert.Equal(t, tt.lang, lang, tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
	}
}
