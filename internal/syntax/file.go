package syntax

import (
	"io"
	"path/filepath"
	"strings"
)

type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
)

// LanguageFor picks the grammar for a file by its extension.
func LanguageFor(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs", ".jsx":
		return JavaScript, true
	case ".ts", ".mts", ".cts":
		return TypeScript, true
	case ".tsx":
		return TSX, true
	default:
		return "", false
	}
}

// File is one parsed source file. The tree under Root is mutable; Source
// always holds the text the tree was parsed from.
type File struct {
	Name     string
	Language Language
	Source   []byte
	Root     *Node

	// text outside the root node's span
	prefix string
	suffix string

	functions map[string]*Node
}

// String prints the whole file.
func (f *File) String() string {
	var b strings.Builder
	b.WriteString(f.prefix)
	if f.Root != nil {
		f.Root.write(&b)
	}
	b.WriteString(f.suffix)
	return b.String()
}

func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, f.String())
	return int64(n), err
}

// Clone deep-copies the tree. The source text is shared.
func (f *File) Clone() *File {
	return &File{
		Name:     f.Name,
		Language: f.Language,
		Source:   f.Source,
		Root:     f.Root.Clone(),
		prefix:   f.prefix,
		suffix:   f.suffix,
	}
}

func (f *File) Walk(fn func(*Node) bool) {
	f.Root.Walk(fn)
}

func (f *File) Rewrite(fn func(*Node) *Node) {
	f.Root = f.Root.Rewrite(fn)
}

// Function looks up a top-level function declaration by name. Declarations
// wrapped in export statements count as top-level.
func (f *File) Function(name string) (*Node, bool) {
	if f.functions == nil {
		f.functions = topLevelFunctions(f.Root)
	}
	decl, ok := f.functions[name]
	return decl, ok
}

func topLevelFunctions(root *Node) map[string]*Node {
	functions := make(map[string]*Node)
	if root == nil {
		return functions
	}
	for _, stmt := range root.NamedChildren() {
		decl := stmt
		if decl.Kind() == "export_statement" {
			decl = decl.ChildByField("declaration")
			if decl == nil {
				continue
			}
		}
		if !IsFunctionDeclaration(decl.Kind()) {
			continue
		}
		name := decl.ChildByField("name")
		if name == nil {
			continue
		}
		// the first declaration wins, matching a forward scan of the file
		if _, seen := functions[name.Text()]; !seen {
			functions[name.Text()] = decl
		}
	}
	return functions
}

// Identifiers returns every identifier-like name spelled anywhere in the file.
func (f *File) Identifiers() map[string]struct{} {
	names := make(map[string]struct{})
	f.Root.Walk(func(n *Node) bool {
		switch n.Kind() {
		case "identifier", "property_identifier", "shorthand_property_identifier",
			"shorthand_property_identifier_pattern", "statement_identifier", "type_identifier":
			names[n.Text()] = struct{}{}
		}
		return true
	})
	return names
}

// Indent returns the leading whitespace of the source line containing pos.
func (f *File) Indent(pos Position) string {
	if !pos.IsValid() || pos.Offset > len(f.Source) {
		return ""
	}
	start := strings.LastIndexByte(string(f.Source[:pos.Offset]), '\n') + 1
	end := start
	for end < len(f.Source) && (f.Source[end] == ' ' || f.Source[end] == '\t') {
		end++
	}
	return string(f.Source[start:end])
}

// IndentUnit guesses the file's indentation step from the most common
// increase in leading whitespace between consecutive code lines. It returns
// "" when no line is indented.
func (f *File) IndentUnit() string {
	counts := make(map[string]int)
	prev := ""
	for _, line := range strings.Split(string(f.Source), "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "*") {
			// blank lines and block comment continuations
			continue
		}
		indent := line[:len(line)-len(trimmed)]
		if len(indent) > len(prev) && strings.HasPrefix(indent, prev) {
			counts[indent[len(prev):]]++
		}
		prev = indent
	}

	best := ""
	for step, n := range counts {
		if n > counts[best] || (n == counts[best] && (len(step) < len(best) || len(step) == len(best) && step < best)) {
			best = step
		}
	}
	return best
}

// IsFunctionDeclaration reports whether kind is a named function statement.
func IsFunctionDeclaration(kind string) bool {
	switch kind {
	case "function_declaration", "generator_function_declaration":
		return true
	}
	return false
}

// IsFunctionLike reports whether kind opens a new function body, and with it
// a new target for return statements.
func IsFunctionLike(kind string) bool {
	switch kind {
	case "function_declaration", "generator_function_declaration",
		"function_expression", "function", "generator_function",
		"arrow_function", "method_definition", "class_body":
		return true
	}
	return false
}

// IsLoop reports whether kind is a statement that captures a bare continue.
func IsLoop(kind string) bool {
	switch kind {
	case "for_statement", "for_in_statement", "while_statement", "do_statement":
		return true
	}
	return false
}
