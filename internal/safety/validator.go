package safety

import (
	"strings"

	"github.com/cmdguard/cmdguard/internal/normalize"
	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
	"github.com/cmdguard/cmdguard/internal/unicode"
)

// Engine validates commands. Construct once with NewEngine and reuse;
// validation itself is stateless, so an Engine is safe for concurrent use.
type Engine struct {
	patterns    []Pattern
	registry    *registry
	substDepth  int
	skipUnicode bool
	logf        func(format string, args ...any)
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtraPatterns appends custom raw-text patterns after the built-ins.
func WithExtraPatterns(pats []Pattern) Option {
	return func(e *Engine) { e.patterns = append(e.patterns, pats...) }
}

// WithCategoryDisabled turns off every structural rule in a category.
func WithCategoryDisabled(cat Category) Option {
	return func(e *Engine) { e.registry.setEnabled(cat, false) }
}

// WithSubstDepth sets the substitution nesting bound for parsing and
// recursive analysis.
func WithSubstDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.substDepth = n
		}
	}
}

// WithoutUnicodeScan disables the character-level scan, for callers that
// pre-sanitize input themselves.
func WithoutUnicodeScan() Option {
	return func(e *Engine) { e.skipUnicode = true }
}

// WithLogf routes internal diagnostics (rule panics, parse failures) to the
// caller's logger. Default is silent.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(e *Engine) {
		e.logf = logf
		e.registry.logf = logf
	}
}

// NewEngine builds an engine with the built-in pattern database and
// structural rule set.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		patterns:   builtinPatterns,
		substDepth: shell.DefaultMaxSubstDepth,
		logf:       func(string, ...any) {},
	}
	e.registry = newRegistry(nil)

	e.registry.add(rmRule{})
	e.registry.add(redirectRule{})
	e.registry.add(ddRule{})
	e.registry.add(mkfsRule{})
	e.registry.add(wrapperRule{nested: e.nestedFindings})
	e.registry.add(substCommandRule{})
	e.registry.add(varCommandRule{})
	e.registry.add(ncRule{})
	e.registry.add(sudoRule{})
	e.registry.add(setuidRule{})
	e.registry.add(suRule{})
	e.registry.addPipeline(downloadPipeRule{})
	e.registry.addPipeline(decodePipeRule{})

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs every layer over one command and maps the combined risk to a
// decision under the given safety level. Deterministic: the same command and
// level always produce the same result.
func (e *Engine) Validate(command string, level risk.SafetyLevel) *ValidationResult {
	res := &ValidationResult{Command: command}

	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		res.Risk = risk.Safe
		res.Decision = risk.Decide(res.Risk, level)
		res.Allowed = res.Decision == risk.Allow
		return res
	}

	var findings []Finding

	// Layer 0: character-level scan.
	if !e.skipUnicode {
		findings = append(findings, e.unicodeFindings(command)...)
	}

	// Layer 1: raw-text patterns, then the same patterns over decoded text.
	findings = append(findings, scanPatterns(command, e.patterns)...)
	if decoded, changed := normalize.ForMatching(command); changed {
		whole := shell.Span{Start: 0, End: len(command)}
		for _, f := range scanPatterns(decoded, e.patterns) {
			f.Span = whole
			f.Description = f.Description + " (after decoding escapes)"
			findings = append(findings, f)
		}
	}

	// Layer 2: structural analysis over the parsed tree.
	prog, err := shell.ParseDepth(command, e.substDepth)
	if err != nil {
		// Text-only findings still count; an unparseable command is
		// degraded, not condemned.
		res.Degraded = true
		res.ParseErr = err.Error()
		e.logf("parse failed, structural layer skipped: %v", err)
	} else {
		vars := shell.NewVarContext(shell.DefaultResolveDepth)
		w := &walker{rules: e.registry}
		findings = append(findings, w.program(prog, vars)...)
		res.Variables = vars.Snapshot()
	}

	res.Findings, res.Risk = aggregate(findings)
	res.Decision = risk.Decide(res.Risk, level)
	res.Allowed = res.Decision == risk.Allow
	return res
}

func (e *Engine) unicodeFindings(command string) []Finding {
	scan := unicode.Scan(command)
	findings := make([]Finding, 0, len(scan.Anomalies))
	for _, a := range scan.Anomalies {
		findings = append(findings, Finding{
			RuleID:      "unicode-" + string(a.Kind),
			Category:    CategoryObfuscation,
			Risk:        a.Risk,
			Description: a.Description,
			Span:        shell.Span{Start: a.Offset, End: a.Offset + 1},
			Source:      SourcePattern,
		})
	}
	return findings
}

// nestedFindings re-validates command text found inside eval or an
// interpreter's -c argument. vars carries the outer variable state one
// resolution level down; at depth zero the recursion stops and the wrapper
// rule's own unknown-payload finding is all the caller gets.
func (e *Engine) nestedFindings(src string, vars *shell.VarContext) []Finding {
	if vars.Depth() < 0 || strings.TrimSpace(src) == "" {
		return nil
	}

	findings := scanPatterns(src, e.patterns)

	prog, err := shell.ParseDepth(src, maxInt(vars.Depth(), 1))
	if err != nil {
		return findings
	}
	w := &walker{rules: e.registry}
	return append(findings, w.program(prog, vars)...)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
