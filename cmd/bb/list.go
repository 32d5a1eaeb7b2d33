package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/beadboard/internal/query"
	uiserver "github.com/steveyegge/beadboard/internal/ui"
	uiapi "github.com/steveyegge/beadboard/internal/ui/api"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"board", "ls"},
	Short:   "Show the board",
	GroupID: "board",
	Long: `Print the board's three status columns in priority order.

--query replaces the board filter, for example:

  bb list --query 'login assignee:Alice severity:3'
  bb list --query 'severity:any'
  bb list --reset

Filters live on the server, so they also apply to 'bb watch' and other clients.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		c := newClient()

		var (
			b       uiapi.BoardResponse
			err     error
			fetched bool
		)
		reset, _ := cmd.Flags().GetBool("reset")
		switch {
		case reset:
			b, err = c.SetFilters(ctx, uiapi.FilterRequest{Reset: true})
			checkErr(err)
			fetched = true
		case cmd.Flags().Changed("query"):
			q, _ := cmd.Flags().GetString("query")
			if _, err := query.Parse(q); err != nil {
				FatalError("%v", err)
			}
			b, err = c.SetFilters(ctx, uiapi.FilterRequest{Query: &q})
			checkErr(err)
			fetched = true
		}
		if cmd.Flags().Changed("page") {
			page, _ := cmd.Flags().GetInt("page")
			b, err = c.SetPage(ctx, page)
			checkErr(err)
			fetched = true
		}
		if !fetched {
			b, err = c.Board(ctx)
			checkErr(err)
		}

		if jsonOutput {
			outputJSON(b)
			return
		}
		fmt.Println(uiserver.RenderBoard(newTheme(), boardView(b), boardStatus(ctx, c, b), terminalWidth()))
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show one issue",
	GroupID: "board",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		issue, err := newClient().Issue(cmd.Context(), args[0])
		checkErr(err)
		if jsonOutput {
			outputJSON(issue)
			return
		}
		fmt.Print(uiserver.RenderIssue(newTheme(), issue, terminalWidth()))
	},
}

func init() {
	listCmd.Flags().String("query", "", "Filter query: free text plus assignee:<name> and severity:<n|any>")
	listCmd.Flags().Bool("reset", false, "Clear the board filter")
	listCmd.Flags().Int("page", 0, "Board page to show (starts at 1)")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}
