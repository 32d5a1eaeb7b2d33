package main

import (
	"context"
	"os"

	"golang.org/x/term"

	"github.com/steveyegge/beadboard/internal/board"
	uiserver "github.com/steveyegge/beadboard/internal/ui"
	uiapi "github.com/steveyegge/beadboard/internal/ui/api"
)

// newClient returns a client for --server, exiting on a malformed URL.
func newClient() *uiapi.Client {
	c, err := uiapi.NewClient(serverURL, uiapi.WithToken(authToken))
	if err != nil {
		FatalErrorWithHint(err.Error(), "set --server or the server config key to http://host:port")
	}
	return c
}

func newTheme() uiserver.Theme {
	return uiserver.NewTheme(uiserver.NewRenderer(os.Stdout))
}

// terminalWidth returns the stdout width, or 0 when it cannot be measured.
func terminalWidth() int {
	if !uiserver.IsTerminal() {
		return 0
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

func boardView(b uiapi.BoardResponse) board.View {
	return board.View{
		Columns:    b.Columns,
		Page:       b.Page,
		PageSize:   b.PageSize,
		TotalPages: b.TotalPages,
	}
}

// boardStatus collects the header line for b. Settings and session are
// optional decorations; a server that cannot report them still renders.
func boardStatus(ctx context.Context, c *uiapi.Client, b uiapi.BoardResponse) uiserver.BoardStatus {
	status := uiserver.BoardStatus{
		LastSync: b.LastSync,
		Loading:  b.Loading,
		Error:    b.Error,
		Filter:   b.Filter,
	}
	if b.Undo.Pending {
		status.UndoIssueID = b.Undo.IssueID
		status.UndoSeconds = b.Undo.Seconds
	}
	if sess, err := c.Session(ctx); err == nil {
		status.User = sess.User.Name
	}
	if settings, err := c.Settings(ctx); err == nil && settings.Enabled {
		status.Polling = parseIntervalOrZero(settings.Interval)
	}
	return status
}
