package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parser turns source text into a File.
type Parser interface {
	Parse(ctx context.Context, name string, src []byte) (*File, error)
}

// ParseError reports the first syntax error tree-sitter recovered from.
type ParseError struct {
	File   string
	Line   int
	Column int
	Near   string
}

func (e *ParseError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("%s:%d:%d: syntax error", e.File, e.Line, e.Column)
	}
	return fmt.Sprintf("%s:%d:%d: syntax error near %q", e.File, e.Line, e.Column, e.Near)
}

// TreeSitterParser parses JavaScript, TypeScript and TSX with tree-sitter.
// It is safe for concurrent use; every Parse call creates its own
// tree-sitter parser.
type TreeSitterParser struct {
	// Fallback is used for names without a known extension.
	Fallback Language
}

func NewTreeSitterParser() *TreeSitterParser {
	return &TreeSitterParser{Fallback: JavaScript}
}

func (p *TreeSitterParser) Parse(ctx context.Context, name string, src []byte) (*File, error) {
	lang, ok := LanguageFor(name)
	if !ok {
		lang = p.Fallback
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar(lang))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(name, root, src)
	}

	start, end := int(root.StartByte()), int(root.EndByte())
	return &File{
		Name:     name,
		Language: lang,
		Source:   src,
		Root:     convert(root, src, ""),
		prefix:   string(src[:start]),
		suffix:   string(src[end:]),
	}, nil
}

func grammar(lang Language) *sitter.Language {
	switch lang {
	case TypeScript:
		return typescript.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func convert(n *sitter.Node, src []byte, field string) *Node {
	start := n.StartPoint()
	node := &Node{
		kind:  n.Type(),
		field: field,
		named: n.IsNamed(),
		pos: Position{
			Offset: int(n.StartByte()),
			Line:   int(start.Row) + 1,
			Column: int(start.Column) + 1,
		},
	}

	count := int(n.ChildCount())
	if count == 0 {
		node.pieces = []piece{{text: string(src[n.StartByte():n.EndByte()])}}
		return node
	}

	cursor := n.StartByte()
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c.StartByte() > cursor {
			node.pieces = append(node.pieces, piece{text: string(src[cursor:c.StartByte()])})
		}
		child := convert(c, src, n.FieldNameForChild(i))
		child.parent = node
		node.pieces = append(node.pieces, piece{node: child})
		if c.EndByte() > cursor {
			cursor = c.EndByte()
		}
	}
	if n.EndByte() > cursor {
		node.pieces = append(node.pieces, piece{text: string(src[cursor:n.EndByte()])})
	}
	return node
}

func firstError(name string, root *sitter.Node, src []byte) *ParseError {
	var found *sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.IsMissing() || n.Type() == "ERROR" {
			found = n
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	if found == nil {
		found = root
	}

	point := found.StartPoint()
	near := found.Content(src)
	if len(near) > 20 {
		near = near[:20]
	}
	return &ParseError{
		File:   name,
		Line:   int(point.Row) + 1,
		Column: int(point.Column) + 1,
		Near:   near,
	}
}
