package unicode

import (
	"testing"

	"github.com/cmdguard/cmdguard/internal/risk"
)

func TestScan_CleanASCII(t *testing.T) {
	result := Scan("ls -la /tmp")
	if !result.Clean() {
		t.Errorf("expected clean result for ASCII command, got anomalies: %v", result.Anomalies)
	}
	if result.Stripped != "ls -la /tmp" {
		t.Errorf("expected stripped = original, got %q", result.Stripped)
	}
}

func TestScan_ZeroWidthSpace(t *testing.T) {
	input := "ls\u200B -la"
	result := Scan(input)

	if result.Clean() {
		t.Fatal("expected anomalies for zero-width space")
	}
	if len(result.Anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(result.Anomalies))
	}
	a := result.Anomalies[0]
	if a.Kind != KindZeroWidth {
		t.Errorf("expected zero-width, got %q", a.Kind)
	}
	if a.Risk != risk.High {
		t.Errorf("expected High risk, got %v", a.Risk)
	}
	if result.Stripped != "ls -la" {
		t.Errorf("expected stripped 'ls -la', got %q", result.Stripped)
	}
}

func TestScan_BOM(t *testing.T) {
	result := Scan("\uFEFFecho hello")
	if result.Clean() {
		t.Fatal("expected anomalies for BOM")
	}
	if result.Anomalies[0].Kind != KindZeroWidth {
		t.Errorf("expected zero-width, got %q", result.Anomalies[0].Kind)
	}
	if result.Stripped != "echo hello" {
		t.Errorf("expected stripped without BOM, got %q", result.Stripped)
	}
}

func TestScan_BidiOverrideIsCritical(t *testing.T) {
	result := Scan("echo \u202Erm -rf /\u202C safe")
	if result.Clean() {
		t.Fatal("expected anomalies for bidi override")
	}

	found := false
	for _, a := range result.Anomalies {
		if a.Kind == KindBidi {
			found = true
			if a.Risk != risk.Critical {
				t.Errorf("bidi override should rate Critical, got %v", a.Risk)
			}
		}
	}
	if !found {
		t.Error("expected at least one bidi-override anomaly")
	}
}

func TestScan_CyrillicHomoglyph(t *testing.T) {
	// "c\u0430t" where \u0430 is Cyrillic U+0430, not Latin 'a'
	result := Scan("c\u0430t secrets.txt")
	if result.Clean() {
		t.Fatal("expected anomalies for Cyrillic homoglyph")
	}
	a := result.Anomalies[0]
	if a.Kind != KindHomoglyph {
		t.Errorf("expected homoglyph, got %q", a.Kind)
	}
	if a.Risk != risk.Moderate {
		t.Errorf("homoglyph should rate Moderate, got %v", a.Risk)
	}
}

func TestScan_HomoglyphInURL(t *testing.T) {
	// IDN homograph: "g\u0456thub.com" with Cyrillic \u0456 (U+0456)
	result := Scan("curl https://g\u0456thub.com/install.sh")
	found := false
	for _, a := range result.Anomalies {
		if a.Kind == KindHomoglyph {
			found = true
		}
	}
	if !found {
		t.Error("expected homoglyph anomaly for Cyrillic \u0456 in URL")
	}
}

func TestScan_TagCharacters(t *testing.T) {
	result := Scan("echo \U000E0001hello\U000E007F")
	found := false
	for _, a := range result.Anomalies {
		if a.Kind == KindTag {
			found = true
			if a.Risk != risk.Critical {
				t.Errorf("tag char should rate Critical, got %v", a.Risk)
			}
		}
	}
	if !found {
		t.Error("expected tag-char anomaly")
	}
}

func TestScan_ControlCharacters(t *testing.T) {
	result := Scan("ls\x00 -la")
	if result.Clean() {
		t.Fatal("expected anomalies for null byte")
	}
	if result.Anomalies[0].Kind != KindControl {
		t.Errorf("expected control-char, got %q", result.Anomalies[0].Kind)
	}
}

func TestScan_AllowsTabAndNewline(t *testing.T) {
	result := Scan("echo\thello\nworld")
	if !result.Clean() {
		t.Errorf("tab and newline should be allowed, got anomalies: %v", result.Anomalies)
	}
}

func TestScan_GreekHomoglyph(t *testing.T) {
	// Greek omicron \u03BF (U+03BF) instead of Latin 'o'
	result := Scan("ech\u03BF hello")
	if result.Clean() {
		t.Fatal("expected anomalies for Greek homoglyph")
	}
	if result.Anomalies[0].Kind != KindHomoglyph {
		t.Errorf("expected homoglyph, got %q", result.Anomalies[0].Kind)
	}
}

func TestScan_MultipleAnomalies(t *testing.T) {
	result := Scan("c\u0430t\u200B \u202Efile.txt")
	if len(result.Anomalies) < 3 {
		t.Errorf("expected at least 3 anomalies, got %d: %v",
			len(result.Anomalies), result.Anomalies)
	}
}

func TestScan_OffsetsPointAtTheRune(t *testing.T) {
	input := "ab\u200Bcd"
	result := Scan(input)
	if len(result.Anomalies) != 1 {
		t.Fatalf("anomalies: %v", result.Anomalies)
	}
	if result.Anomalies[0].Offset != 2 {
		t.Errorf("offset = %d, want 2", result.Anomalies[0].Offset)
	}
}
