package safety

import (
	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

// Rule inspects one simple command with the variable state that is live at
// its position in execution order. A nil return means no finding.
type Rule interface {
	ID() string
	Category() Category
	Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding
}

// PipelineRule inspects a whole pipeline, for hazards that only exist in the
// combination of stages (such as a download piped into an interpreter).
type PipelineRule interface {
	ID() string
	Category() Category
	CheckPipeline(pl *shell.Pipeline, vars *shell.VarContext) []Finding
}

// registry holds the structural rules in registration order, with per-category
// enable flags. Evaluation order is deterministic: the order rules were added.
type registry struct {
	rules    []Rule
	pipeline []PipelineRule
	disabled map[Category]bool
	logf     func(format string, args ...any)
}

func newRegistry(logf func(string, ...any)) *registry {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &registry{disabled: map[Category]bool{}, logf: logf}
}

func (r *registry) add(rule Rule) { r.rules = append(r.rules, rule) }

func (r *registry) addPipeline(p PipelineRule) { r.pipeline = append(r.pipeline, p) }

func (r *registry) setEnabled(cat Category, enabled bool) {
	r.disabled[cat] = !enabled
}

// checkCommand runs every enabled command rule. A panicking rule is skipped
// and logged; one bad rule must not take down validation.
func (r *registry) checkCommand(cmd *shell.SimpleCommand, vars *shell.VarContext) []Finding {
	var findings []Finding
	for _, rule := range r.rules {
		if r.disabled[rule.Category()] {
			continue
		}
		if f := r.runRule(rule, cmd, vars); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

func (r *registry) runRule(rule Rule, cmd *shell.SimpleCommand, vars *shell.VarContext) (f *Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logf("rule %s panicked: %v", rule.ID(), rec)
			f = nil
		}
	}()
	return rule.Check(cmd, vars)
}

func (r *registry) checkPipeline(pl *shell.Pipeline, vars *shell.VarContext) []Finding {
	var findings []Finding
	for _, rule := range r.pipeline {
		if r.disabled[rule.Category()] {
			continue
		}
		findings = append(findings, r.runPipelineRule(rule, pl, vars)...)
	}
	return findings
}

func (r *registry) runPipelineRule(rule PipelineRule, pl *shell.Pipeline, vars *shell.VarContext) (fs []Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logf("pipeline rule %s panicked: %v", rule.ID(), rec)
			fs = nil
		}
	}()
	return rule.CheckPipeline(pl, vars)
}

// commandName resolves the executable name of a simple command: the static
// text of the first word, or its tracked resolution when variables or
// substitutions are involved. ok is false when the name stays unknown.
func commandName(cmd *shell.SimpleCommand, vars *shell.VarContext) (string, bool) {
	if len(cmd.Words) == 0 {
		return "", false
	}
	if name, ok := cmd.Words[0].Static(); ok {
		return baseName(name), true
	}
	v := vars.Resolve(cmd.Words[0])
	if v.Kind == shell.ValueLiteral && v.Text != "" {
		return baseName(v.Text), true
	}
	return "", false
}

// baseName strips a path prefix so /bin/rm and rm rate the same.
func baseName(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}

// resolvedArgs resolves every argv word after the command name.
func resolvedArgs(cmd *shell.SimpleCommand, vars *shell.VarContext) []shell.TrackedValue {
	if len(cmd.Words) < 2 {
		return nil
	}
	out := make([]shell.TrackedValue, 0, len(cmd.Words)-1)
	for _, w := range cmd.Words[1:] {
		out = append(out, vars.Resolve(w))
	}
	return out
}

// hasFlag reports whether any literal-resolvable argument is a flag word
// containing one of the given option characters (so -rf matches both r and f,
// and --recursive matches the long form).
func hasFlag(args []shell.TrackedValue, short byte, long string) bool {
	for _, a := range args {
		if a.Kind == shell.ValueUnknown || a.Text == "" || a.Text[0] != '-' {
			continue
		}
		if len(a.Text) > 1 && a.Text[1] == '-' {
			if long != "" && a.Text == "--"+long {
				return true
			}
			continue
		}
		for i := 1; i < len(a.Text); i++ {
			if a.Text[i] == short {
				return true
			}
		}
	}
	return false
}

type ruleMeta interface {
	ID() string
	Category() Category
}

func structuralFinding(rule ruleMeta, span shell.Span, level risk.RiskLevel, desc, suggestion string) *Finding {
	return &Finding{
		RuleID:      rule.ID(),
		Category:    rule.Category(),
		Risk:        level,
		Description: desc,
		Suggestion:  suggestion,
		Span:        span,
		Source:      SourceStructural,
	}
}
