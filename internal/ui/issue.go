package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/steveyegge/beadboard/internal/types"
)

// RenderIssue draws the detail view of one issue, wrapping the description
// at width (80 when width is not positive).
func RenderIssue(t Theme, issue *types.Issue, width int) string {
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", t.Accent.Render("#"+issue.ID), t.Category.Render(issue.Title))

	field := func(name, value string) {
		fmt.Fprintf(&b, "%s %s\n", t.Muted.Render(fmt.Sprintf("%-10s", name)), value)
	}
	field("Status", string(issue.Status))
	field("Priority", t.PriorityStyle(issue.Priority).Render(string(issue.Priority)))
	field("Severity", t.SeverityStyle(issue.Severity).Render(fmt.Sprint(issue.Severity)))
	assignee := issue.Assignee
	if assignee == "" {
		assignee = t.Muted.Render("unassigned")
	}
	field("Assignee", assignee)
	if len(issue.Tags) > 0 {
		field("Tags", strings.Join(issue.Tags, ", "))
	}
	if issue.UserDefinedRank != nil {
		field("Rank", fmt.Sprint(*issue.UserDefinedRank))
	}
	field("Created", issue.CreatedAt.Local().Format("2006-01-02 15:04"))

	if issue.Description != nil && *issue.Description != "" {
		b.WriteString("\n")
		b.WriteString(WrapText(*issue.Description, width))
		b.WriteString("\n")
	}
	return b.String()
}

// TruncateSimple performs simple end truncation with "..." suffix.
// UTF-8 safe.
func TruncateSimple(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(text)
	return string(runes[:maxLen-3]) + "..."
}

// WrapText wraps text at word boundaries to fit within maxWidth.
// Preserves existing line breaks.
func WrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 80
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wrapLine(line, maxWidth)
	}
	return strings.Join(lines, "\n")
}

// wrapLine wraps a single line; a word longer than maxWidth gets a line of its own.
func wrapLine(line string, maxWidth int) string {
	if utf8.RuneCountInString(line) <= maxWidth {
		return line
	}

	var result strings.Builder
	currentLen := 0
	for _, word := range strings.Fields(line) {
		wordLen := utf8.RuneCountInString(word)
		switch {
		case currentLen == 0:
			currentLen = wordLen
		case currentLen+1+wordLen <= maxWidth:
			result.WriteString(" ")
			currentLen += 1 + wordLen
		default:
			result.WriteString("\n")
			currentLen = wordLen
		}
		result.WriteString(word)
	}
	return result.String()
}
