// Package safety is the command validation engine: a fast pattern filter over
// the raw text, a structural pass over the parsed command tree with variable
// tracking, and an aggregator that maps the combined findings to an
// allow/confirm/block decision under the configured safety level.
package safety

import (
	"fmt"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

// Category groups findings by the kind of harm they describe.
type Category string

const (
	CategoryFilesystem  Category = "filesystem"
	CategoryExecution   Category = "execution"
	CategoryNetwork     Category = "network"
	CategoryPrivilege   Category = "privilege"
	CategoryObfuscation Category = "obfuscation"
)

// ParseCategory validates a category name from configuration.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryFilesystem, CategoryExecution, CategoryNetwork,
		CategoryPrivilege, CategoryObfuscation:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Source says which layer produced a finding.
type Source string

const (
	SourcePattern    Source = "pattern"    // raw-text regex filter
	SourceStructural Source = "structural" // parsed-tree rule engine
)

// Finding is one detected hazard. Span points at the offending bytes in the
// original command text; for whole-command findings it covers everything.
type Finding struct {
	RuleID      string
	Category    Category
	Risk        risk.RiskLevel
	Description string
	Suggestion  string // safer alternative, empty when none applies
	Span        shell.Span
	Source      Source
}

// ValidationResult is the engine's verdict on one command.
type ValidationResult struct {
	Command  string
	Risk     risk.RiskLevel
	Decision risk.Decision
	Allowed  bool
	Findings []Finding

	// Variables is the final flattened variable state, for diagnostics.
	Variables map[string]shell.TrackedValue

	// Degraded is set when the command failed to parse and only the
	// raw-text layer ran. A parse failure alone never blocks.
	Degraded bool
	ParseErr string
}

// HighestFinding returns the first finding carrying the result's overall risk,
// or nil when there are no findings.
func (r *ValidationResult) HighestFinding() *Finding {
	for i := range r.Findings {
		if r.Findings[i].Risk == r.Risk {
			return &r.Findings[i]
		}
	}
	return nil
}
