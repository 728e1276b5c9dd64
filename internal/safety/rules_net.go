package safety

import (
	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

var downloaders = map[string]bool{
	"curl":  true,
	"wget":  true,
	"fetch": true,
}

// downloadPipeRule flags pipelines that feed a downloader's output straight
// into an interpreter. The raw-text pattern catches the common spelling; this
// rule also catches stages whose names resolve through variables.
type downloadPipeRule struct{}

func (downloadPipeRule) ID() string         { return "download-pipe-exec" }
func (downloadPipeRule) Category() Category { return CategoryNetwork }

func (r downloadPipeRule) CheckPipeline(pl *shell.Pipeline, vars *shell.VarContext) []Finding {
	var sawDownload bool
	for _, stage := range pl.Cmds {
		sc, ok := stage.Cmd.(*shell.SimpleCommand)
		if !ok {
			continue
		}
		name, ok := commandName(sc, vars)
		if !ok {
			continue
		}
		switch {
		case downloaders[name]:
			sawDownload = true
		case sawDownload && interpreters[name]:
			return []Finding{*structuralFinding(r, sc.Span, risk.High,
				"Remote content is piped into "+name+" without inspection",
				"Download to a file, review it, then run it")}
		case sawDownload && name == "sudo":
			if inner := sudoInner(sc); inner != nil {
				if iname, ok := commandName(inner, vars); ok && interpreters[iname] {
					return []Finding{*structuralFinding(r, sc.Span, risk.Critical,
						"Remote content is piped into a root shell",
						"Download to a file, review it, then decide whether root is needed")}
				}
			}
		}
	}
	return nil
}

// ncRule rates netcat listeners that hand out a shell.
type ncRule struct{}

func (ncRule) ID() string         { return "nc-shell" }
func (ncRule) Category() Category { return CategoryNetwork }

func (r ncRule) Check(cmd *shell.SimpleCommand, vars *shell.VarContext) *Finding {
	name, ok := commandName(cmd, vars)
	if !ok || (name != "nc" && name != "ncat" && name != "netcat") {
		return nil
	}
	args := resolvedArgs(cmd, vars)
	listen := hasFlag(args, 'l', "listen")
	exec := hasFlag(args, 'e', "exec")
	if !exec {
		// -e may also appear as a separate "-e /bin/sh" pair already
		// covered by hasFlag; a bare shell path argument alone is not
		// enough to call it a backdoor.
		return nil
	}
	if listen {
		return structuralFinding(r, cmd.Span, risk.Critical,
			"Netcat bind shell, opens a network backdoor", "")
	}
	return structuralFinding(r, cmd.Span, risk.Critical,
		"Netcat reverse shell handing command execution to a remote host", "")
}
