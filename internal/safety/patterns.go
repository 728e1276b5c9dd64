package safety

import (
	"fmt"
	"regexp"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

// Pattern is one raw-text rule in the fast filter layer. Patterns run before
// (and independently of) parsing, so they still catch hazards in commands the
// parser rejects.
type Pattern struct {
	ID          string
	Regex       *regexp.Regexp
	Risk        risk.RiskLevel
	Category    Category
	Description string
	Suggestion  string
}

// CompilePattern builds a custom pattern from configuration values,
// rejecting bad regexes instead of panicking the way the builtin table may.
func CompilePattern(id, re string, r risk.RiskLevel, cat Category, desc, suggest string) (Pattern, error) {
	compiled, err := regexp.Compile(re)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %s: %w", id, err)
	}
	return Pattern{
		ID:          id,
		Regex:       compiled,
		Risk:        r,
		Category:    cat,
		Description: desc,
		Suggestion:  suggest,
	}, nil
}

func pat(id string, re string, r risk.RiskLevel, cat Category, desc, suggest string) Pattern {
	return Pattern{
		ID:          id,
		Regex:       regexp.MustCompile(re),
		Risk:        r,
		Category:    cat,
		Description: desc,
		Suggestion:  suggest,
	}
}

// builtinPatterns is the built-in danger database. Compiled once at init;
// an engine can append custom patterns on top but never removes these.
var builtinPatterns = []Pattern{
	// Filesystem destruction
	pat("rm-root-home", `rm\s+(-[rfRF]*\s+)*(/|~|\$HOME|/\*|~/\*)(\s|$)`,
		risk.Critical, CategoryFilesystem,
		"Recursive deletion of root or home directory",
		"Target a specific subdirectory instead of / or ~"),
	pat("rm-force-root", `rm\s+-rf\s+/(\s|$)`,
		risk.Critical, CategoryFilesystem,
		"Force recursive deletion from root",
		"Target a specific subdirectory instead of /"),
	pat("rm-no-preserve-root", `rm\s+-rf\s+--no-preserve-root\s+/`,
		risk.Critical, CategoryFilesystem,
		"Bypass root protection and delete everything",
		""),
	pat("dd-disk-overwrite", `dd\s+.*if=/dev/(zero|random|urandom).*of=/dev/(sd|hd|nvme)`,
		risk.Critical, CategoryFilesystem,
		"Overwrite disk with raw data",
		""),
	pat("mkfs-disk", `mkfs\.\w+\s+/dev/(sd|hd|nvme)`,
		risk.Critical, CategoryFilesystem,
		"Format disk destroying all data",
		""),
	pat("disk-redirect", `>\s*/dev/sd[a-z]`,
		risk.Critical, CategoryFilesystem,
		"Direct write to disk device",
		""),
	pat("shred-disk", `shred\s+-[uvz]*\s+/dev/(sd|hd|nvme)`,
		risk.Critical, CategoryFilesystem,
		"Securely erase disk device",
		""),
	pat("rm-windows-drive", `rm\s+-r[f]*\s+[A-Z]:[/\\]`,
		risk.Critical, CategoryFilesystem,
		"Recursive deletion of Windows drive root",
		""),
	pat("rm-important-files", `rm\s+[^-\s][^\s]*\.(txt|doc|pdf|xlsx|pptx|zip|tar|sql|bak)`,
		risk.Moderate, CategoryFilesystem,
		"Deleting document or archive files",
		"Consider moving files to a trash directory instead"),

	// Fork bombs
	pat("fork-bomb", `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
		risk.Critical, CategoryExecution,
		"Fork bomb, exponential process creation",
		""),
	pat("fork-bomb-variant", `\|\s*&\s*\|`,
		risk.Critical, CategoryExecution,
		"Potential fork bomb pattern",
		""),

	// System directory operations
	pat("sysdir-modify", `(rm|mv|chmod|chown)\s+.*(/bin|/sbin|/usr/bin|/usr/sbin|/etc)(/|\s|$)`,
		risk.High, CategoryFilesystem,
		"Modification of critical system directories",
		""),
	pat("chmod-777-root", `chmod\s+(-R\s+)?777\s+/(\s|$)`,
		risk.High, CategoryFilesystem,
		"World-writable permission change from root",
		"Grant the minimum permissions needed on a specific path"),
	pat("etc-redirect", `>\s*/etc/`,
		risk.High, CategoryFilesystem,
		"Redirect output to system configuration",
		"Edit configuration with a privileged editor and review the diff"),
	pat("etc-write", `(echo|cat|printf)\s+.*>\s*/etc/`,
		risk.High, CategoryFilesystem,
		"Write to system configuration directory",
		""),

	// Privilege escalation
	pat("sudo-su", `sudo\s+su(\s+-.*|\s*$)`,
		risk.High, CategoryPrivilege,
		"Switch to root shell without a specific command",
		"Run the single command under sudo instead of opening a root shell"),
	pat("sudo-setuid", `sudo\s+.*chmod\s+[ug]*\+s`,
		risk.High, CategoryPrivilege,
		"Adding setuid bit with elevated privileges",
		""),
	pat("sudo-rm", `sudo\s+rm\s`,
		risk.High, CategoryPrivilege,
		"Delete files with elevated privileges",
		"Double-check the target path before deleting as root"),
	pat("sudo-service", `sudo\s+(systemctl|service)\s+(restart|stop|disable)`,
		risk.High, CategoryPrivilege,
		"Modify system services with elevated privileges",
		""),

	// Download and execute
	pat("curl-pipe-shell", `(curl|wget)\s+.*\|\s*(bash|sh|zsh|fish)(\s|$)`,
		risk.High, CategoryNetwork,
		"Download and execute remote script without inspection",
		"Download to a file, review it, then run it"),
	pat("curl-pipe-sudo", `(curl|wget)\s+.*\|\s*sudo\s+(bash|sh)`,
		risk.Critical, CategoryNetwork,
		"Download and execute remote script as root",
		"Download to a file, review it, then decide whether root is needed"),

	// Network backdoors
	pat("nc-bind-shell", `nc\s+.*-[a-z]*l[a-z]*\s+.*-[a-z]*e`,
		risk.Critical, CategoryNetwork,
		"Netcat bind shell, opens a network backdoor",
		""),
	pat("nc-exec-shell", `nc\s+-[a-z]*e\s+/bin/(ba)?sh`,
		risk.Critical, CategoryNetwork,
		"Netcat shell binding",
		""),
	pat("iptables-flush", `iptables\s+-F`,
		risk.Moderate, CategoryNetwork,
		"Flush all firewall rules",
		""),
	pat("ufw-disable", `ufw\s+disable`,
		risk.Moderate, CategoryNetwork,
		"Disable firewall",
		""),
	pat("ssh-remote", `ssh\s+[^\s]+@[^\s]+`,
		risk.Moderate, CategoryNetwork,
		"SSH connection to remote server",
		""),
	pat("scp-transfer", `scp\s+`,
		risk.Moderate, CategoryNetwork,
		"File copy to or from remote server",
		""),

	// Process manipulation
	pat("kill-all", `kill\s+-9\s+(-1|1)\s*$`,
		risk.Moderate, CategoryExecution,
		"Force kill all processes or init",
		""),
	pat("killall-force", `killall\s+-9\s+\w+`,
		risk.Moderate, CategoryExecution,
		"Force kill all processes by name",
		"Prefer a plain TERM signal before KILL"),
	pat("kill-pid", `kill\s+-9\s+\d+`,
		risk.Moderate, CategoryExecution,
		"Force kill process by PID",
		"Prefer a plain TERM signal before KILL"),

	// Cron manipulation
	pat("crontab-remove", `crontab\s+-r`,
		risk.High, CategoryExecution,
		"Remove all cron jobs",
		""),
	pat("crontab-inject", `\(crontab\s+-l.*;\s*echo`,
		risk.High, CategoryExecution,
		"Append entry to crontab",
		""),

	// Interpreter one-liners
	pat("python-rm", `python3?\s+-c\s+.*os\.system.*rm\s+-rf`,
		risk.Critical, CategoryExecution,
		"Python one-liner executing recursive deletion",
		""),
	pat("script-system-call", `(python3?|perl|ruby)\s+-[ec]\s+.*system\s*\(`,
		risk.High, CategoryExecution,
		"Script language shelling out to system commands",
		""),

	// Package management
	pat("pkg-force-remove", `(apt|apt-get|yum|dnf)\s+remove\s+.*--force`,
		risk.Moderate, CategoryExecution,
		"Force removal of packages bypassing dependencies",
		""),
	pat("pip-break-system", `pip3?\s+install\s+.*--break-system-packages`,
		risk.Moderate, CategoryExecution,
		"Install Python packages bypassing system protections",
		"Use a virtual environment instead"),
	pat("pip-user-install", `pip3?\s+install\s+--user`,
		risk.Moderate, CategoryExecution,
		"Installing Python packages in the user directory",
		""),

	// Environment manipulation
	pat("path-override", `export\s+PATH=`,
		risk.Moderate, CategoryExecution,
		"Modify PATH environment variable",
		""),
	pat("alias-override", `alias\s+(rm|mv|cp)=`,
		risk.Moderate, CategoryExecution,
		"Override a core command with an alias",
		""),

	// Permission and ownership changes
	pat("chmod-exec", `chmod\s+[+\-]x\s+`,
		risk.Moderate, CategoryFilesystem,
		"Making files executable",
		""),
	pat("chmod-mode", `chmod\s+(-R\s+)?[0-7]{3,4}\s+`,
		risk.Moderate, CategoryFilesystem,
		"Changing file permissions",
		""),
	pat("chown-change", `chown\s+(-R\s+)?[^\s]+\s+`,
		risk.Moderate, CategoryFilesystem,
		"Changing file ownership",
		""),

	// Containers
	pat("docker-privileged", `docker\s+run\s+.*--privileged`,
		risk.High, CategoryExecution,
		"Docker container with full host access",
		"Grant only the specific capabilities the container needs"),

	// Windows / cross-shell
	pat("del-force", `del\s+/[fFsS]\s+`,
		risk.Critical, CategoryFilesystem,
		"Windows delete with force or subdirectory flags",
		""),
	pat("del-c-drive", `del\s+.*C:[/\\]`,
		risk.Critical, CategoryFilesystem,
		"Windows delete on C drive root",
		""),
	pat("format-drive", `format\s+[A-Z]:`,
		risk.Critical, CategoryFilesystem,
		"Format disk drive",
		""),
	pat("powershell-remove-drive", `Remove-Item\s+-Recurse\s+-Force\s+[A-Z]:\\`,
		risk.Critical, CategoryFilesystem,
		"Recursive deletion of Windows drive root",
		""),
	pat("powershell-force-remove", `Remove-Item\s+.*-Force\s+-Recurse`,
		risk.High, CategoryFilesystem,
		"Force recursive deletion in PowerShell",
		""),
	pat("powershell-exec-policy", `Set-ExecutionPolicy\s+Unrestricted`,
		risk.High, CategoryExecution,
		"Disable PowerShell execution policy protection",
		""),

	// Obfuscation carriers
	pat("base64-pipe-shell", `base64\s+(-d|--decode)\s*.*\|\s*(bash|sh|zsh)`,
		risk.High, CategoryObfuscation,
		"Decode base64 payload and pipe it to a shell",
		"Decode to a file and inspect it before running"),
	pat("hex-escape-payload", `(\\x[0-9a-fA-F]{2}){4,}`,
		risk.High, CategoryObfuscation,
		"Long hex escape sequence hiding command text",
		""),
	pat("history-clear", `history\s+-c`,
		risk.Moderate, CategoryObfuscation,
		"Clear shell history",
		""),
}

// quotedRegion is a [Start, End) byte range covering the contents of a
// single- or double-quoted string in the raw text, quotes excluded.
type quotedRegion struct {
	Start int
	End   int
}

// quotedRegions finds matched quote pairs. Backslash escapes a following
// double quote outside single-quoted context; single quotes take no escapes.
// An unterminated quote yields no region, so nothing is suppressed by it.
func quotedRegions(s string) []quotedRegion {
	var regions []quotedRegion
	i := 0
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2
		case '\'':
			end := -1
			for j := i + 1; j < len(s); j++ {
				if s[j] == '\'' {
					end = j
					break
				}
			}
			if end < 0 {
				return regions
			}
			regions = append(regions, quotedRegion{Start: i + 1, End: end})
			i = end + 1
		case '"':
			end := -1
			for j := i + 1; j < len(s); j++ {
				if s[j] == '\\' {
					j++
					continue
				}
				if s[j] == '"' {
					end = j
					break
				}
			}
			if end < 0 {
				return regions
			}
			regions = append(regions, quotedRegion{Start: i + 1, End: end})
			i = end + 1
		default:
			i++
		}
	}
	return regions
}

func insideQuotes(regions []quotedRegion, start, end int) bool {
	for _, r := range regions {
		if start >= r.Start && end <= r.End {
			return true
		}
	}
	return false
}

// scanPatterns runs every pattern over the text. A match that sits entirely
// inside a matched quote pair is data, not a command, and is suppressed.
// Span offsets are relative to the scanned text.
func scanPatterns(text string, patterns []Pattern) []Finding {
	regions := quotedRegions(text)

	var findings []Finding
	for i := range patterns {
		p := &patterns[i]
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			if insideQuotes(regions, loc[0], loc[1]) {
				continue
			}
			findings = append(findings, Finding{
				RuleID:      p.ID,
				Category:    p.Category,
				Risk:        p.Risk,
				Description: p.Description,
				Suggestion:  p.Suggestion,
				Span:        shell.Span{Start: loc[0], End: loc[1]},
				Source:      SourcePattern,
			})
		}
	}
	return findings
}
