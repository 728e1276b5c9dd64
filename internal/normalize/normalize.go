// Package normalize prepares command text for a second pattern pass: it
// collapses whitespace and decodes the cheap encodings (hex escapes, percent
// encoding) that hide dangerous text from a literal regex match. It never
// touches the original text used for spans and display.
package normalize

import (
	"regexp"
	"strings"
)

var (
	hexEscapeRe = regexp.MustCompile(`\\x([0-9a-fA-F]{2})`)
	percentRe   = regexp.MustCompile(`%([0-9a-fA-F]{2})`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Decode expands \xNN hex escapes and %NN percent encoding. The second
// return reports whether anything changed, so callers skip the extra pattern
// pass on plain text.
func Decode(s string) (string, bool) {
	out := s
	if strings.Contains(out, `\x`) {
		out = hexEscapeRe.ReplaceAllStringFunc(out, func(m string) string {
			return string(rune(hexByte(m[2], m[3])))
		})
	}
	if strings.Contains(out, "%") {
		out = percentRe.ReplaceAllStringFunc(out, func(m string) string {
			return string(rune(hexByte(m[1], m[2])))
		})
	}
	return out, out != s
}

func hexByte(hi, lo byte) byte {
	return hexVal(hi)<<4 | hexVal(lo)
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// Collapse trims the text and folds runs of whitespace into single spaces,
// so spacing tricks do not split a pattern match.
func Collapse(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ForMatching is the combined preparation for the decoded pattern pass:
// whitespace collapsed, encodings expanded. Reports whether the result
// differs from the collapsed original.
func ForMatching(s string) (string, bool) {
	collapsed := Collapse(s)
	decoded, changed := Decode(collapsed)
	return decoded, changed
}
