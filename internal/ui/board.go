package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/beadboard/internal/board"
	"github.com/steveyegge/beadboard/internal/query"
	"github.com/steveyegge/beadboard/internal/types"
)

const minColumnWidth = 24

// BoardStatus is the header and footer information around the columns.
type BoardStatus struct {
	User        string
	LastSync    time.Time
	Loading     bool
	Error       string
	Filter      types.FilterSpec
	Polling     time.Duration // zero when polling is off
	UndoIssueID string
	UndoSeconds int
}

// RenderBoard draws the three status columns side by side, with a status
// line above and the page control below. width is the terminal width; zero
// picks a compact default.
func RenderBoard(t Theme, view board.View, status BoardStatus, width int) string {
	colWidth := minColumnWidth
	if width > 0 {
		// Three columns, each with a two-cell border.
		colWidth = max(minColumnWidth, width/len(types.BoardColumns)-2)
	}

	columns := make([]string, 0, len(view.Columns))
	for _, col := range view.Columns {
		columns = append(columns, renderColumn(t, col, colWidth))
	}

	var b strings.Builder
	b.WriteString(renderHeader(t, status))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	b.WriteString("\n")
	b.WriteString(t.Muted.Render(fmt.Sprintf("Page %d of %d", view.Page, view.TotalPages)))
	b.WriteString("\n")
	return b.String()
}

func renderHeader(t Theme, s BoardStatus) string {
	parts := []string{}
	if s.User != "" {
		parts = append(parts, t.Accent.Render(s.User))
	}
	switch {
	case s.Loading:
		parts = append(parts, t.Muted.Render("syncing..."))
	case !s.LastSync.IsZero():
		parts = append(parts, t.Muted.Render("synced "+s.LastSync.Local().Format("15:04:05")))
	}
	if s.Polling > 0 {
		parts = append(parts, t.Muted.Render("every "+s.Polling.String()))
	} else {
		parts = append(parts, t.Muted.Render("polling off"))
	}
	if !s.Filter.IsZero() {
		parts = append(parts, t.Accent.Render("filter: "+query.Format(s.Filter)))
	}

	line := strings.Join(parts, t.Muted.Render(" · "))
	if s.UndoIssueID != "" {
		line += "\n" + t.Warn.Render(fmt.Sprintf("%s Undo #%s (%ds)", t.Icon(IconInfo, "i"), s.UndoIssueID, s.UndoSeconds))
	}
	if s.Error != "" {
		line += "\n" + t.Fail.Render(fmt.Sprintf("%s %s", t.Icon(IconFail, "!"), s.Error))
	}
	return line
}

func renderColumn(t Theme, col board.Column, width int) string {
	var b strings.Builder
	b.WriteString(t.Category.Render(fmt.Sprintf("%s (%d)", strings.ToUpper(string(col.Status)), col.Total)))
	if len(col.Items) == 0 {
		b.WriteString("\n")
		b.WriteString(t.Muted.Render("no issues"))
	}
	for _, issue := range col.Items {
		b.WriteString("\n\n")
		b.WriteString(renderCard(t, issue, width-2))
	}
	return t.Column.Width(width).Render(b.String())
}

// renderCard draws one issue; the title is cut to fit on a single line.
func renderCard(t Theme, issue *types.Issue, width int) string {
	id := "#" + issue.ID
	title := t.Accent.Render(id) + " " + TruncateSimple(issue.Title, max(4, width-len(id)-1))
	meta := []string{
		t.PriorityStyle(issue.Priority).Render(string(issue.Priority)),
		t.SeverityStyle(issue.Severity).Render(fmt.Sprintf("sev %d", issue.Severity)),
	}
	if issue.Assignee != "" {
		meta = append(meta, t.Muted.Render(issue.Assignee))
	}
	return title + "\n" + strings.Join(meta, t.Muted.Render(" · "))
}
