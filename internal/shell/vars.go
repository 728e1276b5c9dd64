package shell

import "strings"

// ValueKind says how well a tracked value is known.
type ValueKind int

const (
	// ValueLiteral: the assignment right-hand side was a constant.
	ValueLiteral ValueKind = iota
	// ValueUnknown: the value depends on positional parameters, the
	// environment, or command output.
	ValueUnknown
	// ValuePartial: the value is uncertain but a fallback is knowable,
	// e.g. the default in ${VAR:-/}.
	ValuePartial
)

func (k ValueKind) String() string {
	switch k {
	case ValueLiteral:
		return "literal"
	case ValuePartial:
		return "partial"
	default:
		return "unknown"
	}
}

// TrackedValue is the resolution of a variable or word: a literal string, an
// unknown, or a partially known value whose Text carries the best hint.
type TrackedValue struct {
	Kind ValueKind
	Text string
}

func LiteralValue(s string) TrackedValue { return TrackedValue{Kind: ValueLiteral, Text: s} }
func UnknownValue() TrackedValue         { return TrackedValue{Kind: ValueUnknown} }
func PartialValue(hint string) TrackedValue {
	return TrackedValue{Kind: ValuePartial, Text: hint}
}

// DefaultResolveDepth is the remaining-depth budget for variable resolution
// across subshell and substitution boundaries.
const DefaultResolveDepth = 3

// VarContext maps variable names to tracked values. A fresh context is
// created per validation call; branches fork child contexts so sibling arms
// of an if/case never leak bindings into each other, and each subshell or
// substitution level decrements the remaining resolution depth. At depth
// zero every reference degrades to Unknown instead of recursing further.
type VarContext struct {
	parent *VarContext
	vars   map[string]TrackedValue
	depth  int
}

// NewVarContext creates a root context with the given remaining depth.
func NewVarContext(depth int) *VarContext {
	if depth <= 0 {
		depth = DefaultResolveDepth
	}
	return &VarContext{vars: map[string]TrackedValue{}, depth: depth}
}

// Fork creates a child context at the same depth. Used for the arms of
// compound commands: assignments inside an arm stay local to it.
func (c *VarContext) Fork() *VarContext {
	return &VarContext{parent: c, vars: map[string]TrackedValue{}, depth: c.depth}
}

// Descend creates a child context one level deeper, for subshells and
// command substitutions.
func (c *VarContext) Descend() *VarContext {
	return &VarContext{parent: c, vars: map[string]TrackedValue{}, depth: c.depth - 1}
}

// Depth returns the remaining resolution depth.
func (c *VarContext) Depth() int { return c.depth }

// Set records a binding in this context level.
func (c *VarContext) Set(name string, v TrackedValue) {
	c.vars[name] = v
}

// Lookup finds a binding, walking parent contexts.
func (c *VarContext) Lookup(name string) (TrackedValue, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if v, ok := ctx.vars[name]; ok {
			return v, true
		}
	}
	return TrackedValue{}, false
}

// Apply records an assignment, resolving its right-hand side first.
func (c *VarContext) Apply(a *Assign) {
	if a == nil || a.Name == "" {
		return
	}
	if a.Value == nil {
		c.Set(a.Name, LiteralValue(""))
		return
	}
	c.Set(a.Name, c.Resolve(a.Value))
}

// Snapshot flattens the context chain into one map, innermost binding wins.
func (c *VarContext) Snapshot() map[string]TrackedValue {
	out := map[string]TrackedValue{}
	var chain []*VarContext
	for ctx := c; ctx != nil; ctx = ctx.parent {
		chain = append(chain, ctx)
	}
	// Outermost first so inner bindings overwrite.
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].vars {
			out[k] = v
		}
	}
	return out
}

// Resolve evaluates a word against the context. A word of only literal parts
// resolves to Literal; a reference to an unbound or environment-sourced
// variable makes it Unknown; a ${VAR:-default} whose VAR is unknown keeps the
// default as a Partial hint so rules can still flag a dangerous fallback.
func (c *VarContext) Resolve(w *Word) TrackedValue {
	if w == nil {
		return UnknownValue()
	}

	var text strings.Builder
	sawUnknown := false
	sawPartial := false

	for _, part := range w.Parts {
		switch p := part.(type) {
		case *Lit:
			text.WriteString(p.Text)

		case *Param:
			v := c.resolveParam(p)
			switch v.Kind {
			case ValueLiteral:
				text.WriteString(v.Text)
			case ValuePartial:
				sawPartial = true
				text.WriteString(v.Text)
			default:
				sawUnknown = true
			}

		case *Subst:
			v := c.resolveSubst(p)
			switch v.Kind {
			case ValueLiteral:
				text.WriteString(v.Text)
			case ValuePartial:
				sawPartial = true
				text.WriteString(v.Text)
			default:
				sawUnknown = true
			}

		default:
			sawUnknown = true
		}
	}

	switch {
	case sawUnknown:
		return UnknownValue()
	case sawPartial:
		return PartialValue(text.String())
	default:
		return LiteralValue(text.String())
	}
}

func (c *VarContext) resolveParam(p *Param) TrackedValue {
	if c.depth <= 0 {
		return UnknownValue()
	}
	if !isShellName(p.Name) {
		// Positional and special parameters are runtime state.
		return UnknownValue()
	}
	if v, ok := c.Lookup(p.Name); ok {
		return v
	}
	// Unbound here means environment-sourced or genuinely unset. Keep the
	// default as a hint when one was written.
	if p.HasDefault {
		return PartialValue(p.Default)
	}
	return UnknownValue()
}

// resolveSubst evaluates $(...) conservatively: only a lone echo/printf of
// constant words produces a knowable value, everything else is Unknown.
func (c *VarContext) resolveSubst(s *Subst) TrackedValue {
	if c.depth <= 0 || s.Prog == nil || len(s.Prog.Stmts) != 1 {
		return UnknownValue()
	}
	sc, ok := s.Prog.Stmts[0].Cmd.(*SimpleCommand)
	if !ok || len(sc.Words) == 0 {
		return UnknownValue()
	}
	name, ok := sc.Words[0].Static()
	if !ok || (name != "echo" && name != "printf") {
		return UnknownValue()
	}

	inner := c.Descend()
	var parts []string
	for _, w := range sc.Words[1:] {
		if text, ok := w.Static(); ok {
			if strings.HasPrefix(text, "-") && len(parts) == 0 {
				continue // echo -n / printf format flags
			}
			parts = append(parts, text)
			continue
		}
		v := inner.Resolve(w)
		if v.Kind != ValueLiteral {
			return UnknownValue()
		}
		parts = append(parts, v.Text)
	}
	return LiteralValue(strings.Join(parts, " "))
}

func isShellName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
