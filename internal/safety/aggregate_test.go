package safety

import (
	"testing"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

func TestAggregate_Dedupe(t *testing.T) {
	in := []Finding{
		{RuleID: "a", Risk: risk.High, Span: shell.Span{Start: 0, End: 5}},
		{RuleID: "a", Risk: risk.High, Span: shell.Span{Start: 0, End: 5}},
		{RuleID: "a", Risk: risk.High, Span: shell.Span{Start: 10, End: 15}},
		{RuleID: "b", Risk: risk.Moderate, Span: shell.Span{Start: 0, End: 5}},
	}
	out, level := aggregate(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 findings after dedupe, got %d: %v", len(out), out)
	}
	if level != risk.High {
		t.Errorf("level = %v, want High", level)
	}
}

func TestAggregate_Order(t *testing.T) {
	in := []Finding{
		{RuleID: "late", Risk: risk.Critical, Span: shell.Span{Start: 20, End: 25}},
		{RuleID: "weak", Risk: risk.Moderate, Span: shell.Span{Start: 5, End: 9}},
		{RuleID: "strong", Risk: risk.High, Span: shell.Span{Start: 5, End: 12}},
	}
	out, level := aggregate(in)
	if level != risk.Critical {
		t.Errorf("level = %v", level)
	}
	want := []string{"strong", "weak", "late"}
	for i, id := range want {
		if out[i].RuleID != id {
			t.Errorf("position %d: got %s, want %s (all: %v)", i, out[i].RuleID, id, out)
		}
	}
}

func TestAggregate_Empty(t *testing.T) {
	out, level := aggregate(nil)
	if len(out) != 0 || level != risk.Safe {
		t.Errorf("empty aggregate: %v %v", out, level)
	}
}

func TestAggregate_TieBreakByRuleID(t *testing.T) {
	in := []Finding{
		{RuleID: "zeta", Risk: risk.High, Span: shell.Span{Start: 0, End: 4}},
		{RuleID: "alpha", Risk: risk.High, Span: shell.Span{Start: 0, End: 4}},
	}
	out, _ := aggregate(in)
	if out[0].RuleID != "alpha" {
		t.Errorf("tie-break order: %v", out)
	}
}
