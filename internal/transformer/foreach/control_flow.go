package foreach

import (
	"foreachfix/internal/syntax"
)

// NameSource hands out identifiers that are unused in the file being
// transformed.
type NameSource interface {
	Fresh(base string) string
}

type ReturnRewriterOptions struct {
	// KeepValues turns `return expr;` into `{ expr; continue; }` instead of
	// dropping the expression.
	KeepValues bool
	// LabelNested makes returns nested in an inner loop continue the
	// synthesized loop through a label.
	LabelNested bool
	// LabelBase is the base for generated labels.
	LabelBase string
}

// ReturnRewriter turns the returns of a callback body into continue
// statements of the loop that replaces the callback.
type ReturnRewriter struct {
	opts  ReturnRewriterOptions
	names NameSource
}

func NewReturnRewriter(names NameSource, opts ReturnRewriterOptions) *ReturnRewriter {
	if opts.LabelBase == "" {
		opts.LabelBase = "_loop"
	}
	return &ReturnRewriter{opts: opts, names: names}
}

// Rewrite mutates the callback body in place. It returns the label the
// synthesized loop must carry, or "" when none is needed, and the number of
// returns rewritten.
func (r *ReturnRewriter) Rewrite(cb *Callback) (label string, rewritten int) {
	if !cb.HasBlockBody() {
		return "", 0
	}
	state := &returnState{rewriter: r}
	state.visit(cb.Body, 0)
	return state.label, state.count
}

type returnState struct {
	rewriter *ReturnRewriter
	label    string
	count    int
}

func (s *returnState) visit(n *syntax.Node, loopDepth int) {
	for _, child := range n.Children() {
		kind := child.Kind()
		switch {
		case !child.IsNamed():
			// tokens
		case syntax.IsFunctionLike(kind):
			// returns inside belong to the nested function
		case kind == "return_statement":
			child.Replace(s.replacement(child, loopDepth))
			s.count++
		case syntax.IsLoop(kind):
			s.visit(child, loopDepth+1)
		default:
			s.visit(child, loopDepth)
		}
	}
}

func (s *returnState) replacement(ret *syntax.Node, loopDepth int) *syntax.Node {
	cont := syntax.Leaf("continue_statement", "continue;")
	if loopDepth > 0 && s.rewriter.opts.LabelNested {
		if s.label == "" {
			s.label = s.rewriter.names.Fresh(s.rewriter.opts.LabelBase)
		}
		cont = syntax.New("continue_statement", "continue ", syntax.Leaf("statement_identifier", s.label), ";")
	}
	cont.At(ret.Pos())

	value := ret.FirstNamedChild()
	if value == nil || !s.rewriter.opts.KeepValues {
		return cont
	}
	return syntax.New("statement_block", "{ ", syntax.New("expression_statement", value, ";"), " ", cont, " }").At(ret.Pos())
}
