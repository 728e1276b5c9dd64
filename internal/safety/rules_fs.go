package safety

import (
	"strings"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

// dangerousRoots are paths whose recursive removal is never what the user
// wanted from a generated command.
var dangerousRoots = map[string]bool{
	"/":     true,
	"/*":    true,
	"~":     true,
	"~/":    true,
	"/etc":  true,
	"/usr":  true,
	"/var":  true,
	"/boot": true,
	"/bin":  true,
	"/sbin": true,
	"/home": true,
	"/lib":  true,
	"/opt":  true,
}

func isDangerousRoot(path string) bool {
	if path == "" {
		return false
	}
	p := strings.TrimSuffix(path, "/")
	if p == "" {
		p = "/"
	}
	if dangerousRoots[p] || dangerousRoots[path] {
		return true
	}
	// A raw $HOME survives resolution only when the word never parsed as a
	// parameter expansion; treat it as the home directory regardless.
	return p == "$HOME"
}

// rmRule rates rm and rmdir invocations by how much they can destroy and how
// well the target is known.
type rmRule struct{}

func (rmRule) ID() string         { return "rm-recursive-target" }
func (rmRule) Category() Category { return CategoryFilesystem }

func (r rmRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	name, ok := commandName(cmd, vars)
	if !ok || (name != "rm" && name != "rmdir") {
		return nil
	}
	args := resolvedArgs(cmd, vars)
	var recursive, force bool
	if name == "rmdir" {
		// rmdir -p walks up the parent chain, the closest it has to a
		// recursive mode.
		recursive = hasFlag(args, 'p', "parents")
	} else {
		recursive = hasFlag(args, 'r', "recursive") || hasFlag(args, 'R', "")
		force = hasFlag(args, 'f', "force")
	}

	for i, a := range args {
		if a.Kind != shell.ValueUnknown && a.Text != "" && a.Text[0] == '-' {
			continue // flag word
		}
		span := cmd.Words[i+1].Span

		switch a.Kind {
		case shell.ValueLiteral:
			if recursive && isDangerousRoot(a.Text) {
				return structuralFinding(r, span, risk.Critical,
					"Recursive deletion of "+a.Text,
					"Target a specific subdirectory instead")
			}
		case shell.ValuePartial:
			if recursive && isDangerousRoot(a.Text) {
				return structuralFinding(r, span, risk.High,
					"Recursive deletion whose fallback target is "+a.Text,
					"Set the variable explicitly before deleting")
			}
		case shell.ValueUnknown:
			// An unresolved recursive target is High whether or not the
			// delete is forced: the uncertainty is the hazard.
			if recursive {
				desc := "Recursive deletion of an unresolvable target"
				if force {
					desc = "Forced recursive deletion of an unresolvable target"
				}
				return structuralFinding(r, span, risk.High, desc,
					"Resolve the target path before generating the command")
			}
		}
	}
	return nil
}

// redirectRule rates redirection targets: block devices are destroyed by a
// stray >, and /etc redirects rewrite system configuration.
type redirectRule struct{}

func (redirectRule) ID() string         { return "redirect-target" }
func (redirectRule) Category() Category { return CategoryFilesystem }

func (r redirectRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	for _, rd := range cmd.Redirs {
		if rd.Target == nil || !strings.HasPrefix(rd.Op, ">") {
			continue
		}
		v := vars.Resolve(rd.Target)
		target := v.Text
		if v.Kind == shell.ValueUnknown {
			continue
		}
		switch {
		case strings.HasPrefix(target, "/dev/sd"),
			strings.HasPrefix(target, "/dev/hd"),
			strings.HasPrefix(target, "/dev/nvme"):
			return structuralFinding(r, rd.Span, risk.Critical,
				"Redirect writes directly to disk device "+target, "")
		case strings.HasPrefix(target, "/etc/"):
			return structuralFinding(r, rd.Span, risk.High,
				"Redirect overwrites system configuration at "+target,
				"Edit the file with a privileged editor and review the diff")
		case strings.HasPrefix(target, "/boot/"):
			return structuralFinding(r, rd.Span, risk.High,
				"Redirect overwrites boot files at "+target, "")
		}
	}
	return nil
}

// ddRule catches raw disk writes that the pattern layer can miss when the
// of= operand comes from a variable.
type ddRule struct{}

func (ddRule) ID() string         { return "dd-device-write" }
func (ddRule) Category() Category { return CategoryFilesystem }

func (r ddRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	name, ok := commandName(cmd, vars)
	if !ok || name != "dd" {
		return nil
	}
	for i, w := range cmd.Words[1:] {
		v := vars.Resolve(w)
		if v.Kind == shell.ValueUnknown {
			continue
		}
		if !strings.HasPrefix(v.Text, "of=") {
			continue
		}
		target := strings.TrimPrefix(v.Text, "of=")
		if strings.HasPrefix(target, "/dev/sd") ||
			strings.HasPrefix(target, "/dev/hd") ||
			strings.HasPrefix(target, "/dev/nvme") {
			return structuralFinding(r, cmd.Words[i+1].Span, risk.Critical,
				"dd writes directly to disk device "+target, "")
		}
	}
	return nil
}

// mkfsRule flags filesystem formatting through mkfs.* names, including
// names assembled from variables.
type mkfsRule struct{}

func (mkfsRule) ID() string         { return "mkfs-device" }
func (mkfsRule) Category() Category { return CategoryFilesystem }

func (r mkfsRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	name, ok := commandName(cmd, vars)
	if !ok || !strings.HasPrefix(name, "mkfs") {
		return nil
	}
	for i, w := range cmd.Words[1:] {
		v := vars.Resolve(w)
		if v.Kind == shell.ValueUnknown || !strings.HasPrefix(v.Text, "/dev/") {
			continue
		}
		return structuralFinding(r, cmd.Words[i+1].Span, risk.Critical,
			"Formatting device "+v.Text+" destroys all data on it", "")
	}
	return nil
}
