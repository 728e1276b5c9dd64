package safety

import (
	"strings"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

// sudoInner strips sudo and its option words from a simple command, returning
// the wrapped command so other rules rate what actually runs. Returns nil
// when the command is not sudo or wraps nothing.
func sudoInner(cmd *shell.SimpleCommand) *shell.SimpleCommand {
	if len(cmd.Words) < 2 {
		return nil
	}
	name, ok := cmd.Words[0].Static()
	if !ok || baseName(name) != "sudo" {
		return nil
	}
	i := 1
	for i < len(cmd.Words) {
		text, ok := cmd.Words[i].Static()
		if !ok || !strings.HasPrefix(text, "-") {
			break
		}
		// Options that consume a value.
		switch text {
		case "-u", "-g", "-p", "-C", "-D", "-h", "-R", "-T":
			i += 2
		default:
			i++
		}
	}
	if i >= len(cmd.Words) {
		return nil
	}
	return &shell.SimpleCommand{
		Words:  cmd.Words[i:],
		Redirs: cmd.Redirs,
		Span:   cmd.Span,
	}
}

// sudoRule rates sudo usage itself: a root shell with no specific command is
// the worst shape, and any sudo at all rates at least Moderate because the
// command came out of a generator, not a human.
type sudoRule struct{}

func (sudoRule) ID() string         { return "sudo-usage" }
func (sudoRule) Category() Category { return CategoryPrivilege }

func (r sudoRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	name, ok := commandName(cmd, vars)
	if !ok || name != "sudo" {
		return nil
	}
	inner := sudoInner(cmd)
	if inner == nil {
		return structuralFinding(r, cmd.Span, risk.High,
			"sudo without a specific command opens a root shell",
			"Run the single command under sudo instead")
	}
	iname, ok := commandName(inner, vars)
	if ok && (iname == "su" || interpreters[iname]) {
		return structuralFinding(r, cmd.Span, risk.Critical,
			"sudo "+iname+" hands out an unrestricted root shell",
			"Run the single command under sudo instead of opening a root shell")
	}
	return structuralFinding(r, cmd.Span, risk.Moderate,
		"Command runs with elevated privileges", "")
}

// setuidRule rates chmod invocations that add the setuid or setgid bit.
// Adding it to an interpreter is a persistent privilege escalation backdoor.
type setuidRule struct{}

func (setuidRule) ID() string         { return "chmod-setuid" }
func (setuidRule) Category() Category { return CategoryPrivilege }

func (r setuidRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	target := cmd
	if inner := sudoInner(cmd); inner != nil {
		target = inner
	}
	name, ok := commandName(target, vars)
	if !ok || name != "chmod" {
		return nil
	}

	var modeIdx = -1
	for i, w := range target.Words[1:] {
		v := vars.Resolve(w)
		if v.Kind == shell.ValueUnknown {
			continue
		}
		if strings.Contains(v.Text, "+s") || isSetuidOctal(v.Text) {
			modeIdx = i + 1
			break
		}
	}
	if modeIdx < 0 {
		return nil
	}

	for _, w := range target.Words[modeIdx+1:] {
		v := vars.Resolve(w)
		if v.Kind == shell.ValueUnknown {
			continue
		}
		if isInterpreterPath(v.Text) {
			return structuralFinding(r, target.Span, risk.Critical,
				"setuid bit on "+v.Text+" creates a persistent root backdoor", "")
		}
	}
	return structuralFinding(r, target.Span, risk.High,
		"Adding the setuid bit changes who the program runs as", "")
}

func isSetuidOctal(mode string) bool {
	if len(mode) != 4 {
		return false
	}
	for _, c := range mode {
		if c < '0' || c > '7' {
			return false
		}
	}
	return mode[0] == '4' || mode[0] == '6' || mode[0] == '2'
}

func isInterpreterPath(p string) bool {
	base := baseName(p)
	return interpreters[base] || base == "python" || base == "python3" ||
		base == "perl" || base == "ruby"
}

// suRule flags bare su, which is sudo-su without the sudo spelling.
type suRule struct{}

func (suRule) ID() string         { return "su-root-shell" }
func (suRule) Category() Category { return CategoryPrivilege }

func (r suRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	name, ok := commandName(cmd, vars)
	if !ok || name != "su" {
		return nil
	}
	// `su user -c cmd` names what runs; a bare `su` or `su -` does not.
	for _, w := range cmd.Words[1:] {
		if text, ok := w.Static(); ok && text == "-c" {
			return nil
		}
	}
	return structuralFinding(r, cmd.Span, risk.High,
		"su opens an interactive root shell",
		"Run the single command under sudo instead")
}
