package cli

import (
	"fmt"
	"strings"

	"github.com/cmdguard/cmdguard/internal/safety"
)

// formatReport renders a display report for the terminal, underlining each
// finding's bytes with a caret marker.
func formatReport(rep safety.DisplayReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  risk=%s", rep.Decision, rep.Risk)
	if rep.Degraded {
		b.WriteString("  (parse failed, text-only analysis)")
	}
	b.WriteByte('\n')

	for _, f := range rep.Findings {
		fmt.Fprintf(&b, "  [%s] %s/%s at %d:%d: %s\n",
			f.Risk, f.Category, f.RuleID, f.Line, f.Col, f.Description)

		if f.Snippet != "" {
			marker := strings.Repeat(" ", f.MarkStart) +
				strings.Repeat("^", f.MarkEnd-f.MarkStart)
			fmt.Fprintf(&b, "      %s\n      %s\n", f.Snippet, marker)
		}
		if f.Suggestion != "" {
			fmt.Fprintf(&b, "      suggestion: %s\n", f.Suggestion)
		}
	}
	return b.String()
}

// summaryLine is the one-line verdict used by --quiet and batch scans.
func summaryLine(res *safety.ValidationResult) string {
	if len(res.Findings) == 0 {
		return fmt.Sprintf("%s risk=%s", res.Decision, res.Risk)
	}
	top := res.HighestFinding()
	return fmt.Sprintf("%s risk=%s findings=%d top=%s",
		res.Decision, res.Risk, len(res.Findings), top.RuleID)
}
