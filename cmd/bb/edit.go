package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/steveyegge/beadboard/internal/debug"
	"github.com/steveyegge/beadboard/internal/types"
	uiapi "github.com/steveyegge/beadboard/internal/ui/api"
)

var moveCmd = &cobra.Command{
	Use:     "move <id> <status>",
	Short:   "Move an issue to another column",
	GroupID: "board",
	Long: `Change an issue's status. Status may be written as Backlog, "In Progress",
in_progress, in-progress or Done.

The board updates at once and the change can be undone with 'bb undo' for a
few seconds. With --wait the board only changes after the remote store
confirms, and nothing is left to undo.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		status, err := types.ParseStatus(args[1])
		if err != nil {
			FatalError("%v", err)
		}
		issue, err := newClient().Move(cmd.Context(), args[0], string(status), editOptions(cmd)...)
		checkErr(err)
		reportEdit(args[0], issue, fmt.Sprintf("moved to %s", status))
	},
}

var editCmd = &cobra.Command{
	Use:     "edit <id>",
	Short:   "Edit issue fields",
	GroupID: "board",
	Long: `Change one or more fields of an issue. Only the flags you pass are changed.

  bb edit 12 --severity 3 --assignee Bob
  bb edit 12 --tags auth,login --rank 5
  bb edit 12 --description ""
  bb edit 12 --clear-rank`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		patch, err := buildPatch(cmd.Flags())
		if err != nil {
			FatalError("%v", err)
		}
		if patch.IsEmpty() {
			FatalErrorWithHint("nothing to change", "pass at least one field flag, see 'bb edit --help'")
		}
		issue, err := newClient().UpdateIssue(cmd.Context(), args[0], patch, editOptions(cmd)...)
		checkErr(err)
		reportEdit(args[0], issue, "updated")
	},
}

func init() {
	for _, c := range []*cobra.Command{moveCmd, editCmd} {
		c.Flags().Bool("wait", false, "Apply only after the remote store confirms (no undo)")
	}

	addEditFlags(editCmd.Flags())

	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(editCmd)
}

// addEditFlags defines the field flags read by buildPatch.
func addEditFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "New title")
	fs.String("status", "", "New status")
	fs.String("priority", "", "New priority (low, medium, high)")
	fs.Int("severity", 0, "New severity")
	fs.String("assignee", "", "New assignee (empty to unassign)")
	fs.StringSlice("tags", nil, "Replace the tags (comma-separated)")
	fs.Int("rank", 0, "User-defined rank added to the priority score")
	fs.String("description", "", "New description")
	fs.Bool("clear-rank", false, "Remove the user-defined rank")
	fs.Bool("clear-description", false, "Remove the description")
}

func editOptions(cmd *cobra.Command) []uiapi.EditOption {
	if wait, _ := cmd.Flags().GetBool("wait"); wait {
		return []uiapi.EditOption{uiapi.Confirmed()}
	}
	return nil
}

// buildPatch turns the explicitly set edit flags into an IssueUpdate.
func buildPatch(flags *pflag.FlagSet) (types.IssueUpdate, error) {
	var patch types.IssueUpdate
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		patch.Title = &v
	}
	if flags.Changed("status") {
		raw, _ := flags.GetString("status")
		status, err := types.ParseStatus(raw)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	if flags.Changed("priority") {
		raw, _ := flags.GetString("priority")
		p := types.Priority(strings.ToLower(strings.TrimSpace(raw)))
		if !p.IsValid() {
			return patch, fmt.Errorf("invalid priority %q (want low, medium or high)", raw)
		}
		patch.Priority = &p
	}
	if flags.Changed("severity") {
		v, _ := flags.GetInt("severity")
		patch.Severity = &v
	}
	if flags.Changed("assignee") {
		v, _ := flags.GetString("assignee")
		patch.Assignee = &v
	}
	if flags.Changed("tags") {
		v, _ := flags.GetStringSlice("tags")
		tags := make([]string, 0, len(v))
		for _, tag := range v {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		patch.Tags = tags
	}
	if flags.Changed("rank") {
		v, _ := flags.GetInt("rank")
		patch.UserDefinedRank = &v
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		patch.Description = &v
	}
	patch.ClearRank, _ = flags.GetBool("clear-rank")
	patch.ClearDescription, _ = flags.GetBool("clear-description")
	if patch.ClearRank && patch.UserDefinedRank != nil {
		return patch, fmt.Errorf("--rank and --clear-rank cannot be combined")
	}
	if patch.ClearDescription && patch.Description != nil {
		return patch, fmt.Errorf("--description and --clear-description cannot be combined")
	}
	return patch, patch.Validate()
}

func reportEdit(id string, issue *types.Issue, what string) {
	if jsonOutput {
		outputJSON(issue)
		return
	}
	if issue == nil {
		debug.PrintNormal("#%s %s, but it is no longer on the board\n", id, what)
		return
	}
	debug.PrintNormal("#%s %s\n", issue.ID, what)
}
