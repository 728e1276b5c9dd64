package safety

import (
	"testing"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

func walkFindings(t *testing.T, src string) []Finding {
	t.Helper()
	prog, err := shell.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	reg := newRegistry(nil)
	reg.add(rmRule{})
	reg.add(redirectRule{})
	reg.add(sudoRule{})
	reg.addPipeline(downloadPipeRule{})
	w := &walker{rules: reg}
	return w.program(prog, shell.NewVarContext(shell.DefaultResolveDepth))
}

func worstRisk(findings []Finding) risk.RiskLevel {
	level := risk.Safe
	for _, f := range findings {
		level = risk.Max(level, f.Risk)
	}
	return level
}

func TestWalk_AssignmentFlowsToLaterStatement(t *testing.T) {
	findings := walkFindings(t, "DIR=/; rm -rf $DIR")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("assignment must flow into the rm, findings: %v", findings)
	}
}

func TestWalk_SafeAssignmentStaysSafe(t *testing.T) {
	findings := walkFindings(t, "DIR=/tmp/cleanup; rm -rf $DIR")
	if len(findings) != 0 {
		t.Errorf("resolved safe target must not fire, findings: %v", findings)
	}
}

func TestWalk_ReassignmentUsesLatestValue(t *testing.T) {
	findings := walkFindings(t, "DIR=/tmp/x; DIR=/; rm -rf $DIR")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("latest assignment wins, findings: %v", findings)
	}
}

func TestWalk_BranchesAreIsolated(t *testing.T) {
	// The assignment in the then-arm must not leak into the else-arm or
	// past the if.
	findings := walkFindings(t,
		"if true; then DIR=/; else rm -rf $DIR; fi; rm -rf $DIR")
	for _, f := range findings {
		if f.Risk == risk.Critical {
			t.Errorf("branch-local binding leaked: %v", f)
		}
	}
	// Both rms still rate High for an unknown forced recursive target.
	if worstRisk(findings) != risk.High {
		t.Errorf("unknown targets should still rate High: %v", findings)
	}
}

func TestWalk_BranchBodiesAreAnalyzed(t *testing.T) {
	findings := walkFindings(t, "if test -f x; then rm -rf /; fi")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("then-arm must be analyzed, findings: %v", findings)
	}

	findings = walkFindings(t, "while true; do rm -rf /; done")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("loop body must be analyzed, findings: %v", findings)
	}

	findings = walkFindings(t, "case $x in a) rm -rf / ;; esac")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("case arm must be analyzed, findings: %v", findings)
	}
}

func TestWalk_PipelineStagesDoNotShareBindings(t *testing.T) {
	// The first stage's assignment is invisible to the second stage, so the
	// rm target stays unknown (High), not the bound / (Critical).
	findings := walkFindings(t, "DIR=/ | rm -rf $DIR")
	if worstRisk(findings) != risk.High {
		t.Errorf("stage bindings must not cross the pipe, findings: %v", findings)
	}
}

func TestWalk_OuterBindingVisibleInPipelineStage(t *testing.T) {
	findings := walkFindings(t, "DIR=/; true | rm -rf $DIR")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("outer binding should be visible inside a stage: %v", findings)
	}
}

func TestWalk_SubstitutionBodyIsAnalyzed(t *testing.T) {
	findings := walkFindings(t, "echo $(rm -rf /)")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("commands inside $() must be rated, findings: %v", findings)
	}
}

func TestWalk_SubshellAnalyzed(t *testing.T) {
	findings := walkFindings(t, "(cd /tmp && rm -rf /)")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("subshell body must be analyzed, findings: %v", findings)
	}
}

func TestWalk_CommandScopedAssignment(t *testing.T) {
	// VAR=x cmd: the binding applies to that command only.
	findings := walkFindings(t, "DIR=/ rm -rf $DIR; rm -rf $DIR")
	crit := 0
	for _, f := range findings {
		if f.Risk == risk.Critical {
			crit++
		}
	}
	if crit != 1 {
		t.Errorf("exactly the scoped command should rate Critical, findings: %v", findings)
	}
}

func TestWalk_SudoTransparent(t *testing.T) {
	findings := walkFindings(t, "sudo rm -rf /")
	var sawRm bool
	for _, f := range findings {
		if f.RuleID == "rm-recursive-target" && f.Risk == risk.Critical {
			sawRm = true
		}
	}
	if !sawRm {
		t.Errorf("rm behind sudo must be rated as if bare, findings: %v", findings)
	}
}

func TestWalk_ConnectionBothSidesAnalyzed(t *testing.T) {
	findings := walkFindings(t, "mkdir /tmp/x && rm -rf /")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("right side of && must be analyzed: %v", findings)
	}

	findings = walkFindings(t, "rm -rf / || echo failed")
	if worstRisk(findings) != risk.Critical {
		t.Errorf("left side of || must be analyzed: %v", findings)
	}
}
