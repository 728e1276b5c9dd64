package shell

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// DefaultMaxSubstDepth bounds command-substitution nesting. Substitutions
// deeper than this convert to Subst nodes with a nil Prog, so crafted input
// cannot force unbounded recursion.
const DefaultMaxSubstDepth = 3

// ParseError is a structured parse failure with the byte offset where the
// parser gave up. Callers degrade to text-only analysis on ParseError; it is
// never a reason to reject a command by itself.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("shell parse error at offset %d: %s", e.Offset, e.Msg)
}

// Parse converts command text into a Program with the default substitution
// nesting bound. Pure function: no side effects, deterministic output.
func Parse(src string) (*Program, error) {
	return ParseDepth(src, DefaultMaxSubstDepth)
}

// ParseDepth is Parse with an explicit substitution nesting bound.
func ParseDepth(src string, maxSubstDepth int) (*Program, error) {
	if maxSubstDepth <= 0 {
		maxSubstDepth = DefaultMaxSubstDepth
	}

	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(src), "")
	if err != nil {
		var perr syntax.ParseError
		if errors.As(err, &perr) {
			return nil, &ParseError{Offset: int(perr.Pos.Offset()), Msg: perr.Text}
		}
		return nil, &ParseError{Msg: err.Error()}
	}

	c := &converter{src: src, depth: maxSubstDepth}
	return c.program(file.Stmts), nil
}

type converter struct {
	src   string
	depth int // remaining substitution nesting budget
}

func (c *converter) program(stmts []*syntax.Stmt) *Program {
	p := &Program{}
	for _, s := range stmts {
		if st := c.stmt(s); st != nil {
			p.Stmts = append(p.Stmts, st)
		}
	}
	return p
}

func (c *converter) stmt(s *syntax.Stmt) *Stmt {
	if s == nil || s.Cmd == nil {
		return nil
	}
	st := &Stmt{
		Background: s.Background,
		Span:       c.span(s),
	}
	for _, r := range s.Redirs {
		st.Redirs = append(st.Redirs, c.redirect(r))
	}
	st.Cmd = c.command(s.Cmd)
	if sc, ok := st.Cmd.(*SimpleCommand); ok {
		sc.Redirs = append(sc.Redirs, st.Redirs...)
	}
	return st
}

func (c *converter) command(cmd syntax.Command) Command {
	switch n := cmd.(type) {
	case *syntax.CallExpr:
		return c.callExpr(n)

	case *syntax.BinaryCmd:
		switch n.Op {
		case syntax.Pipe, syntax.PipeAll:
			pl := &Pipeline{Span: c.span(n)}
			c.flattenPipe(n, pl)
			return pl
		case syntax.AndStmt, syntax.OrStmt:
			op := "&&"
			if n.Op == syntax.OrStmt {
				op = "||"
			}
			return &Connection{
				Op:    op,
				Left:  c.stmt(n.X),
				Right: c.stmt(n.Y),
				Span:  c.span(n),
			}
		}
		return nil

	case *syntax.Subshell:
		return &Compound{
			Kind:     CompoundSubshell,
			Branches: [][]*Stmt{c.stmts(n.Stmts)},
			Span:     c.span(n),
		}

	case *syntax.Block:
		return &Compound{
			Kind:     CompoundBlock,
			Branches: [][]*Stmt{c.stmts(n.Stmts)},
			Span:     c.span(n),
		}

	case *syntax.IfClause:
		comp := &Compound{Kind: CompoundIf, Span: c.span(n)}
		for ic := n; ic != nil; ic = ic.Else {
			comp.Cond = append(comp.Cond, c.stmts(ic.Cond)...)
			comp.Branches = append(comp.Branches, c.stmts(ic.Then))
		}
		return comp

	case *syntax.WhileClause:
		return &Compound{
			Kind:     CompoundWhile,
			Cond:     c.stmts(n.Cond),
			Branches: [][]*Stmt{c.stmts(n.Do)},
			Span:     c.span(n),
		}

	case *syntax.ForClause:
		comp := &Compound{
			Kind:     CompoundFor,
			Branches: [][]*Stmt{c.stmts(n.Do)},
			Span:     c.span(n),
		}
		if wi, ok := n.Loop.(*syntax.WordIter); ok && wi.Name != nil {
			comp.LoopVar = wi.Name.Value
		}
		return comp

	case *syntax.CaseClause:
		comp := &Compound{
			Kind:     CompoundCase,
			Selector: c.word(n.Word),
			Span:     c.span(n),
		}
		for _, item := range n.Items {
			comp.Branches = append(comp.Branches, c.stmts(item.Stmts))
		}
		return comp

	case *syntax.FuncDecl:
		// A definition does not execute its body, but the body is still
		// analyzed: a command that defines a dangerous function and then
		// calls it must not slip through.
		if body := c.stmt(n.Body); body != nil {
			return &Compound{
				Kind:     CompoundBlock,
				Branches: [][]*Stmt{{body}},
				Span:     c.span(n),
			}
		}
		return nil
	}

	// Constructs the engine does not model (arithmetic commands, test
	// clauses, coprocesses). No findings can come from them.
	return nil
}

func (c *converter) flattenPipe(n *syntax.BinaryCmd, pl *Pipeline) {
	if left, ok := n.X.Cmd.(*syntax.BinaryCmd); ok &&
		(left.Op == syntax.Pipe || left.Op == syntax.PipeAll) &&
		len(n.X.Redirs) == 0 {
		c.flattenPipe(left, pl)
	} else if st := c.stmt(n.X); st != nil {
		pl.Cmds = append(pl.Cmds, st)
	}
	if st := c.stmt(n.Y); st != nil {
		pl.Cmds = append(pl.Cmds, st)
	}
}

func (c *converter) stmts(in []*syntax.Stmt) []*Stmt {
	var out []*Stmt
	for _, s := range in {
		if st := c.stmt(s); st != nil {
			out = append(out, st)
		}
	}
	return out
}

func (c *converter) callExpr(n *syntax.CallExpr) *SimpleCommand {
	sc := &SimpleCommand{Span: c.span(n)}
	for _, a := range n.Assigns {
		if a.Name == nil {
			continue
		}
		sc.Assigns = append(sc.Assigns, &Assign{
			Name:  a.Name.Value,
			Value: c.word(a.Value),
			Span:  c.span(a),
		})
	}
	for _, w := range n.Args {
		sc.Words = append(sc.Words, c.word(w))
	}
	return sc
}

func (c *converter) redirect(r *syntax.Redirect) *Redirect {
	return &Redirect{
		Op:     r.Op.String(),
		Target: c.word(r.Word),
		Span:   c.span(r),
	}
}

func (c *converter) word(w *syntax.Word) *Word {
	if w == nil {
		return nil
	}
	out := &Word{
		Raw:  c.slice(w),
		Span: c.span(w),
	}
	for _, p := range w.Parts {
		out.Parts = append(out.Parts, c.wordParts(p, false)...)
	}
	return out
}

func (c *converter) wordParts(p syntax.WordPart, quoted bool) []WordPart {
	switch n := p.(type) {
	case *syntax.Lit:
		// Lit keeps source escapes; the value the shell would execute has
		// them removed, and that is what the rules must see.
		return []WordPart{&Lit{Text: unescape(n.Value, quoted)}}

	case *syntax.SglQuoted:
		return []WordPart{&Lit{Text: n.Value}}

	case *syntax.DblQuoted:
		var parts []WordPart
		for _, inner := range n.Parts {
			parts = append(parts, c.wordParts(inner, true)...)
		}
		return parts

	case *syntax.ParamExp:
		return []WordPart{c.paramExp(n)}

	case *syntax.CmdSubst:
		sub := &Subst{Raw: c.slice(n)}
		if c.depth > 0 {
			c.depth--
			sub.Prog = c.program(n.Stmts)
			c.depth++
		}
		return []WordPart{sub}
	}

	return []WordPart{&Opaque{Raw: c.slice(p)}}
}

// unescape resolves backslash escapes the way the shell would. Inside double
// quotes a backslash only escapes $, `, ", \ and a line-ending newline;
// unquoted it makes whatever follows literal.
func unescape(s string, quoted bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i == len(s)-1 {
			b.WriteByte(ch)
			continue
		}
		next := s[i+1]
		switch {
		case next == '\n':
			i++ // line continuation
		case !quoted, next == '$', next == '`', next == '"', next == '\\':
			b.WriteByte(next)
			i++
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func (c *converter) paramExp(n *syntax.ParamExp) WordPart {
	if n.Param == nil || n.Excl || n.Length || n.Width {
		return &Opaque{Raw: c.slice(n)}
	}
	param := &Param{Name: n.Param.Value}
	if n.Exp != nil {
		switch n.Exp.Op {
		case syntax.DefaultUnset, syntax.DefaultUnsetOrNull:
			if n.Exp.Word != nil {
				if def, ok := c.word(n.Exp.Word).Static(); ok {
					param.Default = def
					param.HasDefault = true
				}
			}
		}
	}
	return param
}

func (c *converter) span(n syntax.Node) Span {
	start := int(n.Pos().Offset())
	end := int(n.End().Offset())
	if start < 0 {
		start = 0
	}
	if end > len(c.src) {
		end = len(c.src)
	}
	if end < start {
		end = start
	}
	return Span{Start: start, End: end}
}

func (c *converter) slice(n syntax.Node) string {
	sp := c.span(n)
	return c.src[sp.Start:sp.End]
}
