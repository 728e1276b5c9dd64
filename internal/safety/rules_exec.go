package safety

import (
	"strings"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

// interpreters are commands whose string argument is itself executed shell.
var interpreters = map[string]bool{
	"sh":   true,
	"bash": true,
	"zsh":  true,
	"dash": true,
	"ksh":  true,
	"fish": true,
}

// nestedValidator re-runs structural analysis on command text found inside
// eval or interpreter -c arguments. Injected by the engine so rules stay
// decoupled from the walker.
type nestedValidator func(src string, vars *shell.VarContext) []Finding

// wrapperRule handles eval and `sh -c`-style indirection: known inner text is
// validated recursively, unknown inner text is itself a finding because the
// engine cannot see what will run.
type wrapperRule struct {
	nested nestedValidator
}

func (wrapperRule) ID() string         { return "wrapper-exec" }
func (wrapperRule) Category() Category { return CategoryExecution }

func (r wrapperRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	name, ok := commandName(cmd, vars)
	if !ok {
		return nil
	}

	var (
		text string
		span shell.Span
		kind shell.ValueKind
	)
	switch {
	case name == "eval":
		text, span, kind = evalPayload(cmd, vars)
	case interpreters[name]:
		payload := dashCPayload(cmd, vars)
		if payload == nil {
			return nil
		}
		v := vars.Resolve(payload)
		text, span, kind = v.Text, payload.Span, v.Kind
	default:
		return nil
	}
	if kind == shell.ValueUnknown {
		return structuralFinding(r, span, risk.High,
			name+" executes text the engine cannot resolve",
			"Inline the command instead of passing it through "+name)
	}
	if text == "" || r.nested == nil {
		return nil
	}

	inner := r.nested(text, vars.Descend())
	if len(inner) == 0 {
		return nil
	}
	worst := inner[0]
	for _, f := range inner[1:] {
		if f.Risk > worst.Risk {
			worst = f
		}
	}
	return structuralFinding(r, span, worst.Risk,
		name+" runs a command rated "+worst.Risk.String()+": "+worst.Description,
		worst.Suggestion)
}

// evalPayload reassembles eval's argument text; eval joins its argv with
// spaces before executing. Any unresolvable argument makes the whole payload
// unknown.
func evalPayload(cmd *shell.SimpleCommand, vars *shell.VarContext) (string, shell.Span, shell.ValueKind) {
	if len(cmd.Words) < 2 {
		return "", shell.Span{}, shell.ValueLiteral
	}
	span := shell.Span{
		Start: cmd.Words[1].Span.Start,
		End:   cmd.Words[len(cmd.Words)-1].Span.End,
	}
	var parts []string
	for _, w := range cmd.Words[1:] {
		v := vars.Resolve(w)
		if v.Kind == shell.ValueUnknown {
			return "", span, shell.ValueUnknown
		}
		parts = append(parts, v.Text)
	}
	return strings.Join(parts, " "), span, shell.ValueLiteral
}

// dashCPayload finds the word after -c for an interpreter invocation.
func dashCPayload(cmd *shell.SimpleCommand, vars *shell.VarContext) *shell.Word {
	for i := 1; i < len(cmd.Words)-1; i++ {
		text, ok := cmd.Words[i].Static()
		if !ok {
			v := vars.Resolve(cmd.Words[i])
			if v.Kind != shell.ValueLiteral {
				continue
			}
			text = v.Text
		}
		if text == "-c" {
			return cmd.Words[i+1]
		}
	}
	return nil
}

// substCommandRule flags commands whose executable name comes from a command
// substitution that the engine could not resolve. When the substitution does
// resolve, the concrete rule for the real command fires instead.
type substCommandRule struct{}

func (substCommandRule) ID() string         { return "subst-command-name" }
func (substCommandRule) Category() Category { return CategoryExecution }

func (r substCommandRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	if len(cmd.Words) == 0 || !cmd.Words[0].HasSubst() {
		return nil
	}
	v := vars.Resolve(cmd.Words[0])
	if v.Kind == shell.ValueLiteral {
		return nil
	}
	return structuralFinding(r, cmd.Words[0].Span, risk.High,
		"Command name is produced by a substitution the engine cannot resolve",
		"Name the command directly instead of computing it")
}

// varCommandRule flags commands whose executable name comes from an unknown
// variable, a milder cousin of substCommandRule.
type varCommandRule struct{}

func (varCommandRule) ID() string         { return "variable-command-name" }
func (varCommandRule) Category() Category { return CategoryExecution }

func (r varCommandRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	if len(cmd.Words) == 0 || cmd.Words[0].HasSubst() {
		return nil
	}
	if _, ok := cmd.Words[0].Static(); ok {
		return nil
	}
	if v := vars.Resolve(cmd.Words[0]); v.Kind == shell.ValueLiteral {
		return nil
	}
	return structuralFinding(r, cmd.Words[0].Span, risk.Moderate,
		"Command name depends on an unresolvable variable", "")
}
