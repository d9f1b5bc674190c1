package foreach

import (
	"foreachfix/internal/syntax"
)

const DefaultMethod = "forEach"

type CallbackKind string

const (
	CallbackInline CallbackKind = "inline" // arrow or function expression
	CallbackNamed  CallbackKind = "named"  // bare identifier
	CallbackOpaque CallbackKind = "opaque" // any other expression
)

// SkipReason explains why an iteration call is left as it is. The empty
// reason means the call can be rewritten.
type SkipReason string

const (
	Eligible           SkipReason = ""
	SkipNoCallback     SkipReason = "no callback argument"
	SkipSpread         SkipReason = "spread callback argument"
	SkipOptionalChain  SkipReason = "optional chaining"
	SkipValueUsed      SkipReason = "call result is used"
	SkipAsync          SkipReason = "async callback"
	SkipGenerator      SkipReason = "generator callback"
	SkipRestParameter  SkipReason = "rest parameter"
	SkipThisParameter  SkipReason = "this parameter"
	SkipNoCallbackBody SkipReason = "callback has no body"
	SkipThisArg        SkipReason = "thisArg argument"
	SkipShadowed       SkipReason = "parameter shadows collection"
	SkipSelfReference  SkipReason = "callback refers to its own name"
)

// Callback is the function value handed to the iteration call.
type Callback struct {
	Node   *syntax.Node
	Kind   CallbackKind
	Params []*syntax.Node // inline callbacks only
	Body   *syntax.Node   // statement_block or expression, inline callbacks only
}

// ParamName returns the binding text of the i-th declared parameter without
// type annotation or default value, or "" when it is not declared.
func (cb *Callback) ParamName(i int) string {
	if i >= len(cb.Params) {
		return ""
	}
	return bindingName(cb.Params[i])
}

// ParamPattern reports whether the i-th parameter destructures its argument.
func (cb *Callback) ParamPattern(i int) bool {
	if i >= len(cb.Params) {
		return false
	}
	switch bindingNode(cb.Params[i]).Kind() {
	case "object_pattern", "array_pattern":
		return true
	}
	return false
}

func (cb *Callback) HasBlockBody() bool {
	return cb.Body != nil && cb.Body.Kind() == "statement_block"
}

// CallSite is one `collection.forEach(callback)` call in statement position.
type CallSite struct {
	Call       *syntax.Node
	Stmt       *syntax.Node // replaced by the loop
	Collection *syntax.Node
	Callback   *Callback
	// Nesting counts the enclosing call-sites whose arrow expression body
	// this call is; each becomes one more level of loop body.
	Nesting int
}

func (cs *CallSite) Pos() syntax.Position {
	return cs.Call.Pos()
}

type Matcher struct {
	method string
}

func NewMatcher(method string) *Matcher {
	if method == "" {
		method = DefaultMethod
	}
	return &Matcher{method: method}
}

func (m *Matcher) Method() string {
	return m.method
}

// IsIterationCall reports whether n is a call whose callee is a property
// access naming the iteration method.
func (m *Matcher) IsIterationCall(n *syntax.Node) bool {
	if n == nil || n.Kind() != "call_expression" {
		return false
	}
	callee := n.ChildByField("function")
	if callee == nil || callee.Kind() != "member_expression" {
		return false
	}
	property := callee.ChildByField("property")
	return property != nil && property.Kind() == "property_identifier" && property.Text() == m.method
}

// Match inspects an iteration call and returns its call-site, or the reason
// it cannot be turned into a loop. n must satisfy IsIterationCall.
func (m *Matcher) Match(n *syntax.Node) (*CallSite, SkipReason) {
	callee := n.ChildByField("function")
	if hasOptionalChain(n) || hasOptionalChain(callee) {
		return nil, SkipOptionalChain
	}

	arg := firstArgument(n)
	if arg == nil {
		return nil, SkipNoCallback
	}
	if arg.Kind() == "spread_element" {
		return nil, SkipSpread
	}
	if len(n.ChildByField("arguments").NamedChildren()) > 1 {
		return nil, SkipThisArg
	}

	stmt, nesting := m.statementOf(n)
	if stmt == nil {
		return nil, SkipValueUsed
	}

	cb, reason := newCallback(arg)
	if reason != Eligible {
		return nil, reason
	}

	collection := callee.ChildByField("object")
	if shadowsCollection(cb, collection) {
		return nil, SkipShadowed
	}

	return &CallSite{
		Call:       n,
		Stmt:       stmt,
		Collection: collection,
		Callback:   cb,
		Nesting:    nesting,
	}, Eligible
}

// shadowsCollection reports whether a parameter the loop declares with let
// is also read by the collection expression, which the loop header would
// then evaluate inside the binding's temporal dead zone. A third parameter
// spelled exactly like the collection is not declared by the loop.
func shadowsCollection(cb *Callback, collection *syntax.Node) bool {
	if cb.Kind != CallbackInline || collection == nil {
		return false
	}
	used := identifiers(collection, "identifier", "shorthand_property_identifier")
	if len(used) == 0 {
		return false
	}
	for i, p := range cb.Params {
		if i >= MaxArity {
			break
		}
		if i == 2 && cb.ParamName(i) == collection.Text() {
			continue
		}
		for name := range identifiers(bindingNode(p), "identifier", "shorthand_property_identifier_pattern") {
			if _, ok := used[name]; ok {
				return true
			}
		}
	}
	return false
}

// identifiers collects the text of every node of the given kinds below n.
func identifiers(n *syntax.Node, kinds ...string) map[string]struct{} {
	names := make(map[string]struct{})
	n.Walk(func(c *syntax.Node) bool {
		for _, kind := range kinds {
			if c.Kind() == kind {
				names[c.Text()] = struct{}{}
				break
			}
		}
		return true
	})
	return names
}

// statementOf returns the node a loop may replace: the enclosing expression
// statement, or the call itself when it is the expression body of an arrow
// callback that is rewritten into a loop body.
func (m *Matcher) statementOf(call *syntax.Node) (*syntax.Node, int) {
	parent := call.Parent()
	if parent == nil {
		return nil, 0
	}
	switch parent.Kind() {
	case "expression_statement":
		if parent.FirstNamedChild() == call {
			return parent, 0
		}
	case "arrow_function":
		if call.Field() != "body" {
			return nil, 0
		}
		args := parent.Parent()
		if args == nil || args.Kind() != "arguments" {
			return nil, 0
		}
		outer := args.Parent()
		if !m.IsIterationCall(outer) || firstArgument(outer) != parent {
			return nil, 0
		}
		if cs, reason := m.Match(outer); reason == Eligible {
			return call, cs.Nesting + 1
		}
	}
	return nil, 0
}

func newCallback(arg *syntax.Node) (*Callback, SkipReason) {
	switch arg.Kind() {
	case "arrow_function", "function_expression", "function":
		if arg.HasToken("async") {
			return nil, SkipAsync
		}
		if arg.HasToken("*") {
			return nil, SkipGenerator
		}
		body := arg.ChildByField("body")
		if body == nil {
			return nil, SkipNoCallbackBody
		}
		// the function's own name is unbound once the body is a loop body
		if name := arg.ChildByField("name"); name != nil {
			if _, ok := identifiers(body, "identifier")[name.Text()]; ok {
				return nil, SkipSelfReference
			}
		}
		params := parameters(arg)
		for _, p := range params {
			switch bindingNode(p).Kind() {
			case "rest_pattern":
				return nil, SkipRestParameter
			case "this":
				return nil, SkipThisParameter
			}
		}
		return &Callback{Node: arg, Kind: CallbackInline, Params: params, Body: body}, Eligible
	case "generator_function":
		return nil, SkipGenerator
	case "identifier":
		return &Callback{Node: arg, Kind: CallbackNamed}, Eligible
	default:
		return &Callback{Node: arg, Kind: CallbackOpaque}, Eligible
	}
}

// parameters returns the declared parameters of a function-like node.
func parameters(fn *syntax.Node) []*syntax.Node {
	if single := fn.ChildByField("parameter"); single != nil {
		return []*syntax.Node{single}
	}
	list := fn.ChildByField("parameters")
	if list == nil {
		return nil
	}
	return list.NamedChildren()
}

// bindingNode unwraps TypeScript parameter wrappers and default values down to
// the pattern that introduces the binding.
func bindingNode(p *syntax.Node) *syntax.Node {
	switch p.Kind() {
	case "required_parameter", "optional_parameter":
		if pattern := p.ChildByField("pattern"); pattern != nil {
			return bindingNode(pattern)
		}
	case "assignment_pattern":
		if left := p.ChildByField("left"); left != nil {
			return bindingNode(left)
		}
	}
	return p
}

func bindingName(p *syntax.Node) string {
	return bindingNode(p).Text()
}

func firstArgument(call *syntax.Node) *syntax.Node {
	args := call.ChildByField("arguments")
	if args == nil {
		return nil
	}
	return args.FirstNamedChild()
}

func hasOptionalChain(n *syntax.Node) bool {
	if n == nil {
		return false
	}
	for _, c := range n.Children() {
		if c.Kind() == "optional_chain" || c.Kind() == "?." {
			return true
		}
	}
	return false
}
