package foreach

import (
	"strings"

	"foreachfix/internal/syntax"
)

type LoopKind string

const (
	LoopForOf   LoopKind = "for-of"
	LoopIndexed LoopKind = "indexed"
)

// KindFor returns the loop shape used for a resolved arity.
func KindFor(arity int) LoopKind {
	if arity <= 1 {
		return LoopForOf
	}
	return LoopIndexed
}

// DefaultNames are the bases for bindings the callback does not declare.
type DefaultNames struct {
	Element  string
	Index    string
	Array    string
	Callback string
}

type LoopSynthesizerOptions struct {
	Defaults DefaultNames
	// Indent is added to the indentation of the replaced statement for the
	// lines the synthesizer writes itself.
	Indent string
	// Materialize binds a collection expression that is not safe to repeat
	// once, ahead of the index, in indexed loops. It also binds a callback
	// expression with side effects once, which forces an indexed loop.
	Materialize bool
}

// LoopSynthesizer builds the loop that replaces a call-site.
type LoopSynthesizer struct {
	opts  LoopSynthesizerOptions
	names NameSource
}

func NewLoopSynthesizer(names NameSource, opts LoopSynthesizerOptions) *LoopSynthesizer {
	if opts.Defaults.Element == "" {
		opts.Defaults.Element = "_el"
	}
	if opts.Defaults.Index == "" {
		opts.Defaults.Index = "_i"
	}
	if opts.Defaults.Array == "" {
		opts.Defaults.Array = "_arr"
	}
	if opts.Defaults.Callback == "" {
		opts.Defaults.Callback = "_fn"
	}
	return &LoopSynthesizer{opts: opts, names: names}
}

// Plan describes one loop to synthesize.
type Plan struct {
	Arity int
	Label string
	// BaseIndent is the indentation of the line the replaced statement is on.
	BaseIndent string
}

// Synthesize returns the loop for cs. The call-site's nodes are moved into
// the loop, so cs must not be printed afterwards.
func (s *LoopSynthesizer) Synthesize(cs *CallSite, plan Plan) *syntax.Node {
	var loop *syntax.Node
	if s.Kind(cs, plan.Arity) == LoopForOf {
		loop = s.forOf(cs, plan)
	} else {
		loop = s.indexed(cs, plan)
	}
	loop.At(cs.Pos())
	if plan.Label == "" {
		return loop
	}
	return syntax.New("labeled_statement", syntax.Leaf("statement_identifier", plan.Label).WithField("label"), ": ", loop.WithField("body")).At(cs.Pos())
}

// Kind returns the loop shape Synthesize builds for cs.
func (s *LoopSynthesizer) Kind(cs *CallSite, arity int) LoopKind {
	if s.bindsCallee(cs) {
		return LoopIndexed
	}
	return KindFor(arity)
}

// bindsCallee reports whether the callback expression must be evaluated once
// ahead of the loop, as forEach evaluates its argument once.
func (s *LoopSynthesizer) bindsCallee(cs *CallSite) bool {
	return s.opts.Materialize && cs.Callback.Kind == CallbackOpaque && HasSideEffects(cs.Callback.Node)
}

func (s *LoopSynthesizer) forOf(cs *CallSite, plan Plan) *syntax.Node {
	element := s.binding(cs.Callback, 0, s.opts.Defaults.Element)
	body := s.body(cs, plan, "", []string{element})
	return syntax.New("for_in_statement",
		"for (let ", syntax.Leaf("identifier", element).WithField("left"),
		" of ", cs.Collection.Clone().WithField("right"), ") ",
		body.WithField("body"),
	)
}

func (s *LoopSynthesizer) indexed(cs *CallSite, plan Plan) *syntax.Node {
	cb := cs.Callback
	index := s.binding(cb, 1, s.opts.Defaults.Index)
	element := s.binding(cb, 0, s.opts.Defaults.Element)
	collection := cs.Collection.Text()

	var decls []string
	ref := collection
	materialize := s.opts.Materialize && !IsSimpleExpression(cs.Collection)
	if materialize {
		// the collection is evaluated once; everything else goes through ref
		ref = s.binding(cb, 2, s.opts.Defaults.Array)
		decls = append(decls, ref+" = "+collection)
	}
	var fn string
	if s.bindsCallee(cs) {
		// after the collection, in the order forEach evaluates them
		fn = s.names.Fresh(s.opts.Defaults.Callback)
		decls = append(decls, fn+" = "+cb.Node.Text())
	}
	switch {
	case materialize:
		decls = append(decls, index+" = 0", element+" = "+ref+"["+index+"]")
	default:
		decls = append(decls, index+" = 0", element+" = "+ref+"["+index+"]")
		if plan.Arity >= 3 && cb.Kind == CallbackInline {
			if alias := cb.ParamName(2); alias != "" && alias != collection {
				decls = append(decls, alias+" = "+collection)
			}
		}
	}

	resync := element + " = " + ref + "[" + index + "]"
	if cb.ParamPattern(0) {
		resync = "(" + resync + ")"
	}

	args := []string{element, index}
	if plan.Arity >= 3 {
		args = append(args, ref)
	}
	body := s.body(cs, plan, fn, args)

	return syntax.New("for_statement",
		"for (",
		syntax.Leaf("lexical_declaration", "let "+strings.Join(decls, ", ")+";").WithField("initializer"),
		" ",
		syntax.Leaf("binary_expression", index+" < "+ref+".length").WithField("condition"),
		"; ",
		syntax.Leaf("sequence_expression", index+"++, "+resync).WithField("increment"),
		") ",
		body.WithField("body"),
	)
}

// binding names the i-th callback argument: the declared name when there is
// one, a fresh name otherwise.
func (s *LoopSynthesizer) binding(cb *Callback, i int, base string) string {
	if cb.Kind == CallbackInline {
		if name := cb.ParamName(i); name != "" {
			return name
		}
	}
	return s.names.Fresh(base)
}

// body returns the loop body: the callback's own block, its expression body
// as a statement, or a call of the referenced function with args truncated
// to the arity. A non-empty fn names the bound callback to call instead.
func (s *LoopSynthesizer) body(cs *CallSite, plan Plan, fn string, args []string) *syntax.Node {
	cb := cs.Callback
	inner := plan.BaseIndent + s.opts.Indent

	if cb.Kind == CallbackInline {
		if cb.HasBlockBody() {
			return cb.Body
		}
		parts := []any{"{\n"}
		for _, c := range bodyComments(cb) {
			parts = append(parts, inner, c, "\n")
		}
		expr := cb.Body
		if isStatement(expr.Kind()) {
			// an expression body that was itself rewritten into a loop
			parts = append(parts, inner, expr, "\n"+plan.BaseIndent+"}")
		} else {
			parts = append(parts, inner, syntax.New("expression_statement", expr, ";"), "\n"+plan.BaseIndent+"}")
		}
		return syntax.New("statement_block", parts...)
	}

	n := max(plan.Arity, 1)
	if n > len(args) {
		n = len(args)
	}
	target := callee(cb.Node)
	if fn != "" {
		target = syntax.Leaf("identifier", fn)
	}
	call := syntax.New("call_expression",
		target.WithField("function"),
		syntax.Leaf("arguments", "("+strings.Join(args[:n], ", ")+")").WithField("arguments"),
	)
	return syntax.New("statement_block",
		"{\n"+inner, syntax.New("expression_statement", call, ";"), "\n"+plan.BaseIndent+"}")
}

// bodyComments returns the comments between the arrow and an expression body.
func bodyComments(cb *Callback) []*syntax.Node {
	var comments []*syntax.Node
	arrow := false
	for _, c := range cb.Node.Children() {
		switch {
		case c == cb.Body:
			return comments
		case c.Kind() == "=>":
			arrow = true
		case arrow && c.IsComment():
			comments = append(comments, c)
		}
	}
	return comments
}

// callee returns the callback expression ready to be called.
func callee(n *syntax.Node) *syntax.Node {
	switch n.Kind() {
	case "identifier", "member_expression", "subscript_expression", "call_expression", "parenthesized_expression", "this":
		return n.Clone()
	}
	return syntax.New("parenthesized_expression", "(", n.Clone(), ")")
}

// IsSimpleExpression reports whether n can be evaluated repeatedly without
// side effects: an identifier, this, or a property chain over those.
func IsSimpleExpression(n *syntax.Node) bool {
	switch n.Kind() {
	case "identifier", "this":
		return true
	case "member_expression":
		if hasOptionalChain(n) {
			return false
		}
		object := n.ChildByField("object")
		return object != nil && IsSimpleExpression(object)
	}
	return false
}

// HasSideEffects reports whether evaluating n may call code or assign.
func HasSideEffects(n *syntax.Node) bool {
	found := false
	n.Walk(func(c *syntax.Node) bool {
		switch c.Kind() {
		case "call_expression", "new_expression", "assignment_expression", "augmented_assignment_expression",
			"update_expression", "await_expression", "yield_expression", "tagged_template_expression":
			found = true
		case "arrow_function", "function_expression", "function":
			// bodies do not run when the value is created
			return false
		}
		return !found
	})
	return found
}

func isStatement(kind string) bool {
	return syntax.IsLoop(kind) || kind == "labeled_statement"
}
