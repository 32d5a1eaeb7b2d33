package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beadboard/internal/debug"
	uiserver "github.com/steveyegge/beadboard/internal/ui"
	uiapi "github.com/steveyegge/beadboard/internal/ui/api"
	"github.com/steveyegge/beadboard/internal/undo"
)

const watchMaxBackoff = 30 * time.Second

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow the board live",
	GroupID: "board",
	Long: `Redraw the board whenever it changes on the server, including the undo
countdown. The connection is re-established with exponential backoff if the
server goes away. Press Ctrl-C to stop.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		c := newClient()
		t := newTheme()
		clearScreen := uiserver.IsTerminal()

		state := &watchState{}
		err := watchBoard(ctx, c, state, func() {
			if jsonOutput {
				data, _ := json.Marshal(state.board)
				fmt.Println(string(data))
				return
			}
			if clearScreen {
				fmt.Print("\033[H\033[2J")
			}
			fmt.Println(uiserver.RenderBoard(t, boardView(state.board), state.status(), terminalWidth()))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			checkErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watchState folds stream events into the latest board and undo countdown.
type watchState struct {
	board   uiapi.BoardResponse
	undo    undo.Tick
	user    string
	polling time.Duration
}

// apply records evt and reports whether the rendered board would change.
func (w *watchState) apply(evt uiapi.StreamEvent) (bool, error) {
	switch evt.Type {
	case uiapi.EventTypeBoard:
		var b uiapi.BoardResponse
		if err := json.Unmarshal(evt.Data, &b); err != nil {
			return false, fmt.Errorf("decode board event: %w", err)
		}
		if b.Version != 0 && b.Version < w.board.Version {
			return false, nil
		}
		w.board = b
		w.undo = b.Undo.Tick
		if !b.Undo.Pending {
			w.undo = undo.Tick{}
		}
		return true, nil
	case uiapi.EventTypeUndo:
		var tick undo.Tick
		if err := json.Unmarshal(evt.Data, &tick); err != nil {
			return false, fmt.Errorf("decode undo event: %w", err)
		}
		changed := tick.IssueID != w.undo.IssueID || tick.Seconds != w.undo.Seconds
		w.undo = tick
		return changed, nil
	}
	return false, nil
}

func (w *watchState) status() uiserver.BoardStatus {
	status := uiserver.BoardStatus{
		User:     w.user,
		LastSync: w.board.LastSync,
		Loading:  w.board.Loading,
		Error:    w.board.Error,
		Filter:   w.board.Filter,
		Polling:  w.polling,
	}
	if w.undo.IssueID != "" && w.undo.Seconds > 0 {
		status.UndoIssueID = w.undo.IssueID
		status.UndoSeconds = w.undo.Seconds
	}
	return status
}

// permanentStreamError reports errors a reconnect cannot fix.
func permanentStreamError(err error) bool {
	return uiapi.IsStatus(err, http.StatusUnauthorized) ||
		uiapi.IsStatus(err, http.StatusForbidden) ||
		uiapi.IsStatus(err, http.StatusNotFound)
}

// watchBoard streams board events into state, calling redraw after every
// visible change, until ctx is done. Dropped connections are retried with
// exponential backoff; the backoff resets once a connection delivers events.
func watchBoard(ctx context.Context, c *uiapi.Client, state *watchState, redraw func()) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = watchMaxBackoff
	bo.MaxElapsedTime = 0 // keep trying until interrupted

	operation := func() error {
		// A restarted server counts versions from zero again.
		state.board.Version = 0
		if sess, err := c.Session(ctx); err == nil {
			state.user = sess.User.Name
		}
		state.polling = 0
		if settings, err := c.Settings(ctx); err == nil && settings.Enabled {
			state.polling = parseIntervalOrZero(settings.Interval)
		}

		err := c.Stream(ctx, func(evt uiapi.StreamEvent) error {
			bo.Reset()
			changed, err := state.apply(evt)
			if err != nil {
				return backoff.Permanent(err)
			}
			if changed {
				redraw()
			}
			return nil
		})
		switch {
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case permanentStreamError(err):
			return backoff.Permanent(err)
		case errors.Is(err, io.EOF):
			return errors.New("event stream closed by server")
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		debug.Logf("Debug: event stream: %v; reconnecting in %s\n", err, wait.Round(time.Millisecond))
		if !jsonOutput && !debug.IsQuiet() {
			WarnError("lost connection to %s (%v); retrying in %s", serverURL, err, wait.Round(100*time.Millisecond))
		}
	}
	err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
