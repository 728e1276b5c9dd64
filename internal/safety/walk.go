package safety

import "github.com/cmdguard/cmdguard/internal/shell"

// walker runs the structural rule set over a program in execution order,
// threading variable state the way the shell would: sequences and && / ||
// chains share one context, branch arms fork so siblings stay isolated, and
// subshells and substitutions descend one resolution level.
type walker struct {
	rules *registry
}

func (w *walker) program(prog *shell.Program, vars *shell.VarContext) []Finding {
	var findings []Finding
	for _, st := range prog.Stmts {
		findings = append(findings, w.stmt(st, vars)...)
	}
	return findings
}

func (w *walker) stmt(st *shell.Stmt, vars *shell.VarContext) []Finding {
	if st == nil || st.Cmd == nil {
		return nil
	}
	switch cmd := st.Cmd.(type) {
	case *shell.SimpleCommand:
		return w.simple(cmd, vars)

	case *shell.Pipeline:
		findings := w.rules.checkPipeline(cmd, vars)
		// Each stage runs in its own subshell; assignments never escape a
		// stage, and one stage's bindings are invisible to its siblings.
		for _, stage := range cmd.Cmds {
			findings = append(findings, w.stmt(stage, vars.Fork())...)
		}
		return findings

	case *shell.Connection:
		findings := w.stmt(cmd.Left, vars)
		return append(findings, w.stmt(cmd.Right, vars)...)

	case *shell.Compound:
		return w.compound(cmd, vars)
	}
	return nil
}

func (w *walker) compound(cmd *shell.Compound, vars *shell.VarContext) []Finding {
	var findings []Finding

	ctx := vars
	if cmd.Kind == shell.CompoundSubshell {
		ctx = vars.Descend()
	}

	// Conditions always execute before any branch is chosen.
	for _, st := range cmd.Cond {
		findings = append(findings, w.stmt(st, ctx)...)
	}
	if cmd.Selector != nil {
		findings = append(findings, w.substPrograms(cmd.Selector, ctx)...)
	}

	for _, branch := range cmd.Branches {
		arm := ctx.Fork()
		if cmd.LoopVar != "" {
			// The iteration value is runtime state even when the word
			// list is literal; one conservative binding covers all
			// iterations.
			arm.Set(cmd.LoopVar, shell.UnknownValue())
		}
		for _, st := range branch {
			findings = append(findings, w.stmt(st, arm)...)
		}
	}
	return findings
}

func (w *walker) simple(cmd *shell.SimpleCommand, vars *shell.VarContext) []Finding {
	var findings []Finding

	// Substitutions in assignment values and argv words execute first.
	for _, a := range cmd.Assigns {
		if a.Value != nil {
			findings = append(findings, w.substPrograms(a.Value, vars)...)
		}
	}
	for _, word := range cmd.Words {
		findings = append(findings, w.substPrograms(word, vars)...)
	}
	for _, rd := range cmd.Redirs {
		if rd.Target != nil {
			findings = append(findings, w.substPrograms(rd.Target, vars)...)
		}
	}

	if len(cmd.Words) == 0 {
		// Pure assignment statement: bindings persist in this context.
		for _, a := range cmd.Assigns {
			vars.Apply(a)
		}
		return findings
	}

	// Command-scoped assignments (VAR=x cmd) are visible to the command but
	// must not leak into the surrounding context.
	ctx := vars
	if len(cmd.Assigns) > 0 {
		ctx = vars.Fork()
		for _, a := range cmd.Assigns {
			ctx.Apply(a)
		}
	}

	findings = append(findings, w.rules.checkCommand(cmd, ctx)...)

	// sudo is transparent: the wrapped command is rated as if it ran bare,
	// on top of whatever the sudo rule itself said.
	if inner := sudoInner(cmd); inner != nil {
		findings = append(findings, w.rules.checkCommand(inner, ctx)...)
	}
	return findings
}

// substPrograms walks the command substitutions inside a word, so commands
// hidden in $(...) are rated like any other. Substitution programs run one
// resolution level down with their own variable scope.
func (w *walker) substPrograms(word *shell.Word, vars *shell.VarContext) []Finding {
	var findings []Finding
	for _, part := range word.Parts {
		sub, ok := part.(*shell.Subst)
		if !ok || sub.Prog == nil {
			continue
		}
		findings = append(findings, w.program(sub.Prog, vars.Descend())...)
	}
	return findings
}
