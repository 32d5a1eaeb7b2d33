package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/beadboard/internal/debug"
)

var undoCmd = &cobra.Command{
	Use:     "undo",
	Short:   "Undo the last edit",
	GroupID: "board",
	Long: `Revert the most recent edit while its undo window is open.

Only the last edit can be undone; a new edit replaces it. Use --status to see
how long the window has left without undoing anything.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		c := newClient()

		state, err := c.UndoStatus(ctx)
		checkErr(err)
		if only, _ := cmd.Flags().GetBool("status"); only {
			if jsonOutput {
				outputJSON(state)
				return
			}
			if !state.Pending {
				fmt.Println("Nothing to undo")
				return
			}
			fmt.Printf("Undo #%s available for %ds\n", state.IssueID, state.Seconds)
			return
		}
		if !state.Pending {
			debug.PrintlnNormal("Nothing to undo")
			return
		}

		b, err := c.Undo(ctx)
		checkErr(err)
		if jsonOutput {
			outputJSON(b)
			return
		}
		debug.PrintNormal("Undid edit to #%s\n", state.IssueID)
	},
}

var refreshCmd = &cobra.Command{
	Use:     "refresh",
	Short:   "Reload the board from the remote store now",
	GroupID: "board",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		b, err := newClient().Refresh(cmd.Context())
		checkErr(err)
		if jsonOutput {
			outputJSON(b)
			return
		}
		debug.PrintNormal("Refreshed %d issues\n", b.Total)
	},
}

var dismissCmd = &cobra.Command{
	Use:     "dismiss",
	Short:   "Clear the board's error message",
	GroupID: "board",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		checkErr(newClient().DismissError(cmd.Context()))
	},
}

func init() {
	undoCmd.Flags().Bool("status", false, "Show the pending edit and its remaining window")
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(dismissCmd)
}
