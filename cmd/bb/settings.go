package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/beadboard/internal/debug"
	uiserver "github.com/steveyegge/beadboard/internal/ui"
	uiapi "github.com/steveyegge/beadboard/internal/ui/api"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Short:   "Show or change polling",
	GroupID: "setup",
	Long: `Show the board server's polling settings, or change them:

  bb settings --interval 30s
  bb settings --enabled=false`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		c := newClient()

		var req uiapi.SettingsRequest
		if cmd.Flags().Changed("interval") {
			v, _ := cmd.Flags().GetString("interval")
			req.Interval = &v
		}
		if cmd.Flags().Changed("enabled") {
			v, _ := cmd.Flags().GetBool("enabled")
			req.Enabled = &v
		}

		var (
			settings uiapi.SettingsResponse
			err      error
		)
		if req.Interval != nil || req.Enabled != nil {
			settings, err = c.UpdateSettings(ctx, req)
		} else {
			settings, err = c.Settings(ctx)
		}
		checkErr(err)

		if jsonOutput {
			outputJSON(settings)
			return
		}
		state := "on"
		if !settings.Enabled {
			state = "off"
		}
		fmt.Printf("Polling:  %s\n", state)
		fmt.Printf("Interval: %s\n", settings.Interval)
		fmt.Printf("Allowed:  %s\n", strings.Join(settings.Allowed, ", "))
	},
}

var userCmd = &cobra.Command{
	Use:     "user [name]",
	Short:   "Show or switch the current user",
	GroupID: "setup",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		c := newClient()

		var (
			sess uiapi.SessionResponse
			err  error
		)
		if len(args) == 1 {
			sess, err = c.SwitchUser(ctx, args[0])
		} else {
			sess, err = c.Session(ctx)
		}
		checkErr(err)

		if jsonOutput {
			outputJSON(sess)
			return
		}
		t := newTheme()
		for _, u := range sess.Users {
			marker := " "
			name := u.Name
			if u.Name == sess.User.Name {
				marker = t.Icon(uiserver.IconPass, "*")
				name = t.Accent.Render(name)
			}
			fmt.Printf("%s %s %s\n", marker, name, t.Muted.Render("("+string(u.Role)+")"))
		}
	},
}

var recentCmd = &cobra.Command{
	Use:     "recent",
	Short:   "List recently viewed issues",
	GroupID: "board",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		c := newClient()

		if clearAll, _ := cmd.Flags().GetBool("clear"); clearAll {
			checkErr(c.ClearRecent(ctx))
			if !jsonOutput {
				debug.PrintlnNormal("Cleared recently viewed issues")
			}
			return
		}

		issues, err := c.Recent(ctx)
		checkErr(err)
		if jsonOutput {
			outputJSON(issues)
			return
		}
		if len(issues) == 0 {
			fmt.Println("No recently viewed issues")
			return
		}
		t := newTheme()
		for _, issue := range issues {
			fmt.Printf("%s %s %s\n", t.Accent.Render("#"+issue.ID), issue.Title, t.Muted.Render(string(issue.Status)))
		}
	},
}

func init() {
	settingsCmd.Flags().String("interval", "", "Polling interval (5s, 10s, 30s, 1m or 2m)")
	settingsCmd.Flags().Bool("enabled", true, "Turn polling on or off")
	recentCmd.Flags().Bool("clear", false, "Forget recently viewed issues")

	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(recentCmd)
}

func parseIntervalOrZero(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
