// Package unicode scans command text for characters that make the displayed
// command differ from the executed one: zero-width characters, bidirectional
// overrides, tag characters, raw controls, and homoglyphs from confusable
// scripts. A generated command has no business containing any of them.
package unicode

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cmdguard/cmdguard/internal/risk"
)

// AnomalyKind classifies a suspicious character.
type AnomalyKind string

const (
	KindInvalidUTF8 AnomalyKind = "invalid-utf8"
	KindZeroWidth   AnomalyKind = "zero-width"
	KindBidi        AnomalyKind = "bidi-override"
	KindTag         AnomalyKind = "tag-char"
	KindControl     AnomalyKind = "control-char"
	KindHomoglyph   AnomalyKind = "homoglyph"
)

// Anomaly is one suspicious character occurrence.
type Anomaly struct {
	Kind        AnomalyKind
	Risk        risk.RiskLevel
	Description string
	Offset      int    // byte offset in the input
	Codepoint   string // e.g. "U+200B"
}

// ScanResult is the outcome of scanning one command.
type ScanResult struct {
	Anomalies []Anomaly
	// Stripped is the input with flagged characters removed, for display.
	Stripped string
}

func (r ScanResult) Clean() bool { return len(r.Anomalies) == 0 }

// Scan inspects command text rune by rune. Bidi overrides and tag characters
// rate Critical because they actively disguise what runs; invisible and
// control characters rate High; confusable letters rate Moderate because
// they may be legitimate non-English text.
func Scan(input string) ScanResult {
	var res ScanResult
	var stripped strings.Builder

	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])

		if r == utf8.RuneError && size == 1 {
			res.Anomalies = append(res.Anomalies, Anomaly{
				Kind:        KindInvalidUTF8,
				Risk:        risk.High,
				Description: "Invalid UTF-8 byte sequence",
				Offset:      i,
				Codepoint:   fmt.Sprintf("0x%02X", input[i]),
			})
			i++
			continue
		}

		if a, bad := classify(r, i); bad {
			res.Anomalies = append(res.Anomalies, a)
			i += size
			continue
		}

		stripped.WriteRune(r)
		i += size
	}

	res.Stripped = stripped.String()
	return res
}

func classify(r rune, pos int) (Anomaly, bool) {
	cp := fmt.Sprintf("U+%04X", r)

	switch {
	case isBidiOverride(r):
		return Anomaly{
			Kind:        KindBidi,
			Risk:        risk.Critical,
			Description: fmt.Sprintf("Bidirectional override %s makes displayed text differ from executed text", cp),
			Offset:      pos,
			Codepoint:   cp,
		}, true

	case isTagCharacter(r):
		return Anomaly{
			Kind:        KindTag,
			Risk:        risk.Critical,
			Description: fmt.Sprintf("Tag character %s can smuggle hidden instructions", cp),
			Offset:      pos,
			Codepoint:   cp,
		}, true

	case isZeroWidth(r):
		return Anomaly{
			Kind:        KindZeroWidth,
			Risk:        risk.High,
			Description: fmt.Sprintf("Zero-width character %s hides content from display", cp),
			Offset:      pos,
			Codepoint:   cp,
		}, true

	case isUnsafeControl(r):
		return Anomaly{
			Kind:        KindControl,
			Risk:        risk.High,
			Description: fmt.Sprintf("Control character %s should not appear in a command", cp),
			Offset:      pos,
			Codepoint:   cp,
		}, true
	}

	if latin, ok := confusableLatin(r); ok {
		return Anomaly{
			Kind:        KindHomoglyph,
			Risk:        risk.Moderate,
			Description: fmt.Sprintf("Character %s looks like Latin '%c'", cp, latin),
			Offset:      pos,
			Codepoint:   cp,
		}, true
	}

	return Anomaly{}, false
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\uFEFF', // ZERO WIDTH NO-BREAK SPACE (BOM)
		'\u2060', // WORD JOINER
		'\u180E', // MONGOLIAN VOWEL SEPARATOR
		'\u200E', // LEFT-TO-RIGHT MARK
		'\u200F': // RIGHT-TO-LEFT MARK
		return true
	}
	return false
}

func isBidiOverride(r rune) bool {
	switch r {
	case '\u202A', // LEFT-TO-RIGHT EMBEDDING
		'\u202B', // RIGHT-TO-LEFT EMBEDDING
		'\u202C', // POP DIRECTIONAL FORMATTING
		'\u202D', // LEFT-TO-RIGHT OVERRIDE
		'\u202E', // RIGHT-TO-LEFT OVERRIDE
		'\u2066', // LEFT-TO-RIGHT ISOLATE
		'\u2067', // RIGHT-TO-LEFT ISOLATE
		'\u2068', // FIRST STRONG ISOLATE
		'\u2069': // POP DIRECTIONAL ISOLATE
		return true
	}
	return false
}

func isTagCharacter(r rune) bool {
	return r >= 0xE0001 && r <= 0xE007F
}

func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	if r <= 0x1F || r == 0x7F {
		return true
	}
	return r >= 0x80 && r <= 0x9F
}

// confusableLatin reports whether r is a Cyrillic or Greek letter that is
// visually confusable with a Latin letter, and which one.
func confusableLatin(r rune) (rune, bool) {
	if unicode.Is(unicode.Cyrillic, r) {
		l, ok := cyrillicConfusables[r]
		return l, ok
	}
	if unicode.Is(unicode.Greek, r) {
		l, ok := greekConfusables[r]
		return l, ok
	}
	return 0, false
}

var cyrillicConfusables = map[rune]rune{
	'а': 'a', 'А': 'A',
	'В': 'B',
	'с': 'c', 'С': 'C',
	'е': 'e', 'Е': 'E',
	'Н': 'H',
	'і': 'i', 'І': 'I',
	'К': 'K',
	'М': 'M',
	'о': 'o', 'О': 'O',
	'р': 'p', 'Р': 'P',
	'Т': 'T',
	'х': 'x', 'Х': 'X',
	'у': 'y', 'У': 'Y',
}

var greekConfusables = map[rune]rune{
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I',
	'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'ο': 'o',
	'Ρ': 'P', 'Τ': 'T', 'Χ': 'X', 'Υ': 'Y', 'Ζ': 'Z',
}
