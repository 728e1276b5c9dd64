package safety

import (
	"testing"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

// parseSimple parses src and returns its first statement as a simple command.
func parseSimple(t *testing.T, src string) *shell.SimpleCommand {
	t.Helper()
	prog, err := shell.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	if len(prog.Stmts) == 0 {
		t.Fatalf("no statements in %q", src)
	}
	sc, ok := prog.Stmts[0].Cmd.(*shell.SimpleCommand)
	if !ok {
		t.Fatalf("%q: first statement is %T", src, prog.Stmts[0].Cmd)
	}
	return sc
}

func newVars() *shell.VarContext {
	return shell.NewVarContext(shell.DefaultResolveDepth)
}

func TestRmRule(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]shell.TrackedValue
		want risk.RiskLevel // Safe means no finding
	}{
		{"root literal", "rm -rf /", nil, risk.Critical},
		{"home literal", "rm -rf ~", nil, risk.Critical},
		{"etc literal", "rm -r /etc", nil, risk.Critical},
		{"trailing slash", "rm -rf /usr/", nil, risk.Critical},
		{"safe path", "rm -rf /tmp/build", nil, risk.Safe},
		{"non-recursive root", "rm /", nil, risk.Safe},
		{"var resolves to root", "rm -rf $DIR",
			map[string]shell.TrackedValue{"DIR": shell.LiteralValue("/")}, risk.Critical},
		{"var resolves to safe path", "rm -rf $DIR",
			map[string]shell.TrackedValue{"DIR": shell.LiteralValue("/tmp/x")}, risk.Safe},
		{"unknown var forced", "rm -rf $DIR", nil, risk.High},
		{"unknown var recursive only", "rm -r $DIR", nil, risk.High},
		{"unknown var long recursive", "rm --recursive $DIR", nil, risk.High},
		{"dangerous default", "rm -rf ${TARGET:-/}", nil, risk.High},
		{"safe default", "rm -rf ${TARGET:-/tmp/x}", nil, risk.Safe},
		{"long flag", "rm --recursive --force /", nil, risk.Critical},
		{"rmdir parents root", "rmdir -p /usr", nil, risk.Critical},
		{"rmdir plain dangerous", "rmdir /usr", nil, risk.Safe},
		{"rmdir parents safe", "rmdir -p /tmp/a/b", nil, risk.Safe},
		{"rmdir parents unknown", "rmdir -p $DIR", nil, risk.High},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := newVars()
			for k, v := range tt.vars {
				vars.Set(k, v)
			}
			f := rmRule{}.Check(parseSimple(t, tt.src), vars)
			got := risk.Safe
			if f != nil {
				got = f.Risk
			}
			if got != tt.want {
				t.Errorf("risk = %v, want %v (finding: %+v)", got, tt.want, f)
			}
		})
	}
}

func TestRedirectRule(t *testing.T) {
	tests := []struct {
		src  string
		want risk.RiskLevel
	}{
		{"echo x > /dev/sda", risk.Critical},
		{"echo x > /etc/hosts", risk.High},
		{"echo x > /tmp/out", risk.Safe},
		{"echo x > out.txt", risk.Safe},
		{"cat < /etc/hosts", risk.Safe}, // reading is fine
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f := redirectRule{}.Check(parseSimple(t, tt.src), newVars())
			got := risk.Safe
			if f != nil {
				got = f.Risk
			}
			if got != tt.want {
				t.Errorf("risk = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedirectRule_VariableTarget(t *testing.T) {
	vars := newVars()
	vars.Set("OUT", shell.LiteralValue("/dev/sda"))
	f := redirectRule{}.Check(parseSimple(t, "echo x > $OUT"), vars)
	if f == nil || f.Risk != risk.Critical {
		t.Errorf("variable disk target: %+v", f)
	}
}

func TestWrapperRule(t *testing.T) {
	nested := func(src string, vars *shell.VarContext) []Finding {
		if src == "rm -rf /" {
			return []Finding{{RuleID: "rm-recursive-target", Risk: risk.Critical,
				Description: "Recursive deletion of /"}}
		}
		return nil
	}
	rule := wrapperRule{nested: nested}

	// Known payload is validated recursively at its real severity.
	f := rule.Check(parseSimple(t, `bash -c "rm -rf /"`), newVars())
	if f == nil || f.Risk != risk.Critical {
		t.Errorf("bash -c with critical payload: %+v", f)
	}

	f = rule.Check(parseSimple(t, `eval rm -rf /`), newVars())
	if f == nil || f.Risk != risk.Critical {
		t.Errorf("eval with critical payload: %+v", f)
	}

	// Unknown payload is itself High: the engine cannot see what runs.
	f = rule.Check(parseSimple(t, `bash -c "$CMD"`), newVars())
	if f == nil || f.Risk != risk.High {
		t.Errorf("bash -c unknown payload: %+v", f)
	}

	// Harmless payload, no finding.
	f = rule.Check(parseSimple(t, `bash -c "ls -la"`), newVars())
	if f != nil {
		t.Errorf("benign payload: %+v", f)
	}

	// Not a wrapper at all.
	if f := rule.Check(parseSimple(t, "ls -la"), newVars()); f != nil {
		t.Errorf("ls: %+v", f)
	}
}

func TestSubstCommandRule(t *testing.T) {
	// Unresolvable substitution as command name.
	f := substCommandRule{}.Check(parseSimple(t, `$(cat cmd.txt) -rf /`), newVars())
	if f == nil || f.Risk != risk.High {
		t.Errorf("opaque subst command: %+v", f)
	}

	// Resolvable substitution: the concrete rule handles it instead.
	f = substCommandRule{}.Check(parseSimple(t, `$(echo rm) -rf /`), newVars())
	if f != nil {
		t.Errorf("resolvable subst should not fire this rule: %+v", f)
	}
}

func TestSudoRule(t *testing.T) {
	tests := []struct {
		src  string
		want risk.RiskLevel
	}{
		{"sudo su", risk.Critical},
		{"sudo bash", risk.Critical},
		{"sudo", risk.High},
		{"sudo apt update", risk.Moderate},
		{"ls", risk.Safe},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f := sudoRule{}.Check(parseSimple(t, tt.src), newVars())
			got := risk.Safe
			if f != nil {
				got = f.Risk
			}
			if got != tt.want {
				t.Errorf("risk = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSudoInner(t *testing.T) {
	inner := sudoInner(parseSimple(t, "sudo -u root rm -rf /tmp/x"))
	if inner == nil {
		t.Fatal("expected inner command")
	}
	name, _ := inner.Words[0].Static()
	if name != "rm" {
		t.Errorf("inner command = %q, want rm", name)
	}

	if sudoInner(parseSimple(t, "ls -la")) != nil {
		t.Error("non-sudo command must not unwrap")
	}
	if sudoInner(parseSimple(t, "sudo -i")) != nil {
		t.Error("sudo with only flags wraps nothing")
	}
}

func TestSetuidRule(t *testing.T) {
	f := setuidRule{}.Check(parseSimple(t, "chmod u+s /bin/bash"), newVars())
	if f == nil || f.Risk != risk.Critical {
		t.Errorf("setuid on interpreter: %+v", f)
	}

	f = setuidRule{}.Check(parseSimple(t, "sudo chmod u+s /usr/local/bin/tool"), newVars())
	if f == nil || f.Risk != risk.High {
		t.Errorf("setuid on other binary: %+v", f)
	}

	if f := (setuidRule{}).Check(parseSimple(t, "chmod 755 script.sh"), newVars()); f != nil {
		t.Errorf("plain chmod: %+v", f)
	}
}

func TestNcRule(t *testing.T) {
	f := ncRule{}.Check(parseSimple(t, "nc -lvp 4444 -e /bin/sh"), newVars())
	if f == nil || f.Risk != risk.Critical {
		t.Errorf("bind shell: %+v", f)
	}

	if f := (ncRule{}).Check(parseSimple(t, "nc example.com 80"), newVars()); f != nil {
		t.Errorf("plain nc: %+v", f)
	}
}

func TestRegistry_PanickingRuleIsIsolated(t *testing.T) {
	var logged bool
	reg := newRegistry(func(string, ...any) { logged = true })
	reg.add(panicRule{})
	reg.add(rmRule{})

	findings := reg.checkCommand(parseSimple(t, "rm -rf /"), newVars())
	if len(findings) != 1 {
		t.Fatalf("expected the rm finding despite the panic, got %v", findings)
	}
	if !logged {
		t.Error("panic should be logged")
	}
}

type panicRule struct{}

func (panicRule) ID() string         { return "panic-rule" }
func (panicRule) Category() Category { return CategoryExecution }
func (panicRule) Check(*shell.SimpleCommand, *shell.VarContext) *Finding {
	panic("boom")
}

func TestRegistry_CategoryDisable(t *testing.T) {
	reg := newRegistry(nil)
	reg.add(rmRule{})
	reg.setEnabled(CategoryFilesystem, false)

	if findings := reg.checkCommand(parseSimple(t, "rm -rf /"), newVars()); len(findings) != 0 {
		t.Errorf("disabled category still fired: %v", findings)
	}
}
