package safety

import (
	"sort"

	"github.com/cmdguard/cmdguard/internal/risk"
)

// aggregate merges findings from all layers into one deterministic list and
// computes the overall risk. Duplicate findings (same rule on the same span,
// which happens when the raw-text and decoded-text passes both match) keep a
// single entry. Order is by span start, then by severity descending, then by
// rule ID so equal findings always land in the same place.
func aggregate(findings []Finding) ([]Finding, risk.RiskLevel) {
	type key struct {
		start, end int
		rule       string
	}
	seen := make(map[key]bool, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		k := key{f.Span.Start, f.Span.End, f.RuleID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Span.Start != out[j].Span.Start {
			return out[i].Span.Start < out[j].Span.Start
		}
		if out[i].Risk != out[j].Risk {
			return out[i].Risk > out[j].Risk
		}
		return out[i].RuleID < out[j].RuleID
	})

	level := risk.Safe
	for _, f := range out {
		level = risk.Max(level, f.Risk)
	}
	return out, level
}
