package safety

import (
	"strings"

	"github.com/cmdguard/cmdguard/internal/risk"
	"github.com/cmdguard/cmdguard/internal/shell"
)

// DisplayReport is the renderable form of a validation result: pure data,
// with every finding located in the source text so any front end can
// underline the offending bytes. Terminal formatting belongs to the CLI.
type DisplayReport struct {
	Command  string
	Decision risk.Decision
	Risk     risk.RiskLevel
	Degraded bool
	ParseErr string
	Findings []ReportFinding
}

// ReportFinding is one finding with its position resolved. Line and Col are
// 1-based; MarkStart and MarkEnd delimit the offending bytes within Snippet.
type ReportFinding struct {
	RuleID      string
	Category    Category
	Risk        risk.RiskLevel
	Description string
	Suggestion  string
	Span        shell.Span
	Line        int
	Col         int
	Snippet     string
	MarkStart   int
	MarkEnd     int
}

// Render resolves each finding's span against the command text and returns
// the display report.
func Render(res *ValidationResult) DisplayReport {
	rep := DisplayReport{
		Command:  res.Command,
		Decision: res.Decision,
		Risk:     res.Risk,
		Degraded: res.Degraded,
		ParseErr: res.ParseErr,
	}
	for _, f := range res.Findings {
		line, col := lineCol(res.Command, f.Span.Start)
		rf := ReportFinding{
			RuleID:      f.RuleID,
			Category:    f.Category,
			Risk:        f.Risk,
			Description: f.Description,
			Suggestion:  f.Suggestion,
			Span:        f.Span,
			Line:        line,
			Col:         col,
		}
		if snippet, markStart, markEnd, ok := snippetFor(res.Command, f.Span); ok {
			rf.Snippet = snippet
			rf.MarkStart = markStart
			rf.MarkEnd = markEnd
		}
		rep.Findings = append(rep.Findings, rf)
	}
	return rep
}

// lineCol converts a byte offset to 1-based line and column.
func lineCol(src string, offset int) (int, int) {
	if offset > len(src) {
		offset = len(src)
	}
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// snippetFor extracts the source line containing the span and the offsets of
// the spanned bytes within it. Multi-line spans mark to end of line.
func snippetFor(src string, sp shell.Span) (string, int, int, bool) {
	if sp.Start < 0 || sp.Start >= len(src) || sp.End <= sp.Start {
		return "", 0, 0, false
	}

	lineStart := strings.LastIndexByte(src[:sp.Start], '\n') + 1
	lineEnd := len(src)
	if i := strings.IndexByte(src[lineStart:], '\n'); i >= 0 {
		lineEnd = lineStart + i
	}

	markEnd := sp.End
	if markEnd > lineEnd {
		markEnd = lineEnd
	}

	return src[lineStart:lineEnd], sp.Start - lineStart, markEnd - lineStart, true
}
