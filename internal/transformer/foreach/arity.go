package foreach

import (
	"foreachfix/internal/syntax"
)

// MaxArity is the number of arguments forEach hands its callback: element,
// index and the collection itself.
const MaxArity = 3

// Resolver finds the declaration a by-name callback refers to.
type Resolver interface {
	Function(name string) (*syntax.Node, bool)
}

type ArityResolver struct {
	symbols Resolver
}

func NewArityResolver(symbols Resolver) *ArityResolver {
	return &ArityResolver{symbols: symbols}
}

// Resolve returns how many of the three callback arguments the call-site
// uses. Inline callbacks count their declared parameters; named callbacks
// count the parameters of the declaration they refer to, and anything that
// cannot be resolved uses none.
func (r *ArityResolver) Resolve(cs *CallSite) int {
	switch cs.Callback.Kind {
	case CallbackInline:
		return clamp(len(cs.Callback.Params))
	case CallbackNamed:
		if r.symbols == nil {
			return 0
		}
		decl, ok := r.symbols.Function(cs.Callback.Node.Text())
		if !ok {
			return 0
		}
		return clamp(len(parameters(decl)))
	default:
		return 0
	}
}

func clamp(n int) int {
	return min(n, MaxArity)
}
