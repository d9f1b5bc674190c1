package syntax

import (
	"fmt"
	"strings"
)

// Position is the location of a node in the source it was parsed from.
// Line and Column are 1-based; Column counts bytes.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is a mutable, text-preserving syntax node. Its printed form is the
// concatenation of its pieces, where a piece is either literal source text
// (whitespace, comments, or synthesized code) or a child node.
type Node struct {
	kind   string
	field  string
	named  bool
	pos    Position
	parent *Node
	pieces []piece
}

type piece struct {
	text string
	node *Node
}

func (n *Node) Kind() string { return n.kind }
func (n *Node) Field() string { return n.field }
func (n *Node) IsNamed() bool { return n.named }
func (n *Node) Pos() Position { return n.pos }
func (n *Node) Parent() *Node { return n.parent }
func (n *Node) IsComment() bool { return n.kind == "comment" }
func (n *Node) IsSynthetic() bool { return !n.pos.IsValid() }

// Children returns every child node, named or anonymous, in source order.
func (n *Node) Children() []*Node {
	children := make([]*Node, 0, len(n.pieces))
	for _, p := range n.pieces {
		if p.node != nil {
			children = append(children, p.node)
		}
	}
	return children
}

// NamedChildren returns the named children, skipping comments.
func (n *Node) NamedChildren() []*Node {
	var children []*Node
	for _, p := range n.pieces {
		if p.node != nil && p.node.named && !p.node.IsComment() {
			children = append(children, p.node)
		}
	}
	return children
}

// FirstNamedChild returns the first named, non-comment child or nil.
func (n *Node) FirstNamedChild() *Node {
	for _, p := range n.pieces {
		if p.node != nil && p.node.named && !p.node.IsComment() {
			return p.node
		}
	}
	return nil
}

// ChildByField returns the first child stored under the given grammar field.
func (n *Node) ChildByField(field string) *Node {
	for _, p := range n.pieces {
		if p.node != nil && p.node.field == field {
			return p.node
		}
	}
	return nil
}

// HasToken reports whether n has a direct anonymous child with the given text,
// e.g. the "async" keyword of a function.
func (n *Node) HasToken(token string) bool {
	for _, p := range n.pieces {
		if p.node != nil && !p.node.named && p.node.kind == token {
			return true
		}
	}
	return false
}

// Text prints the node, including every replacement made below it.
func (n *Node) Text() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	for _, p := range n.pieces {
		if p.node != nil {
			p.node.write(b)
		} else {
			b.WriteString(p.text)
		}
	}
}

// Replace substitutes with for n in n's parent. It reports false when n is
// detached.
func (n *Node) Replace(with *Node) bool {
	parent := n.parent
	if parent == nil || with == nil {
		return false
	}
	for i, p := range parent.pieces {
		if p.node == n {
			with.detach()
			with.parent = parent
			with.field = n.field
			parent.pieces[i] = piece{node: with}
			n.parent = nil
			return true
		}
	}
	return false
}

func (n *Node) detach() {
	if n.parent == nil {
		return
	}
	for i, p := range n.parent.pieces {
		if p.node == n {
			n.parent.pieces[i] = piece{}
			break
		}
	}
	n.parent = nil
}

// Clone returns a deep copy of n. Positions are copied unchanged so that the
// copy can be correlated with the original.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		kind:   n.kind,
		field:  n.field,
		named:  n.named,
		pos:    n.pos,
		pieces: make([]piece, len(n.pieces)),
	}
	for i, p := range n.pieces {
		if p.node != nil {
			child := p.node.Clone()
			child.parent = c
			c.pieces[i] = piece{node: child}
		} else {
			c.pieces[i] = p
		}
	}
	return c
}

// Walk traverses the subtree depth-first in pre-order. Children are not
// visited when fn returns false. Children are read after fn runs, so fn may
// replace descendants of the node it is given.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children() {
		child.Walk(fn)
	}
}

// Rewrite traverses the subtree in post-order and substitutes every node for
// which fn returns a different node. It returns the node that now stands in
// for n.
func (n *Node) Rewrite(fn func(*Node) *Node) *Node {
	if n == nil {
		return nil
	}
	for i := range n.pieces {
		child := n.pieces[i].node
		if child == nil {
			continue
		}
		if replaced := child.Rewrite(fn); replaced != child {
			replaced.detach()
			replaced.parent = n
			replaced.field = child.field
			child.parent = nil
			n.pieces[i] = piece{node: replaced}
		}
	}
	return fn(n)
}

// New builds a synthesized node from literal text and child nodes. Child
// nodes are moved under the new node; pass a Clone to keep the original.
func New(kind string, parts ...any) *Node {
	n := &Node{kind: kind, named: true}
	for _, part := range parts {
		switch p := part.(type) {
		case string:
			if p != "" {
				n.pieces = append(n.pieces, piece{text: p})
			}
		case *Node:
			if p == nil {
				continue
			}
			p.detach()
			p.parent = n
			n.pieces = append(n.pieces, piece{node: p})
		default:
			panic(fmt.Sprintf("syntax.New: unsupported part %T", part))
		}
	}
	return n
}

// Leaf builds a synthesized node with no children.
func Leaf(kind, text string) *Node {
	return &Node{kind: kind, named: true, pieces: []piece{{text: text}}}
}

// WithField sets the grammar field n is stored under and returns n.
func (n *Node) WithField(field string) *Node {
	n.field = field
	return n
}

// At sets the position reported for a synthesized node and returns n.
func (n *Node) At(pos Position) *Node {
	n.pos = pos
	return n
}

func (n *Node) String() string {
	return fmt.Sprintf("%s@%s", n.kind, n.pos)
}
