package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/steveyegge/beadboard/internal/config"
	"github.com/steveyegge/beadboard/internal/debug"
)

var (
	serverURL   string
	authToken   string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func init() {
	// Initialize viper configuration
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Board server URL (default: config key server)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Bearer token for the board server (default: config key auth-token)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	rootCmd.AddGroup(&cobra.Group{ID: "board", Title: "Working With the Board:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Server & Configuration:"})
}

var rootCmd = &cobra.Command{
	Use:   "bb",
	Short: "bb - Prioritized issue board",
	Long: `A status board for a small team. Issues are ordered by severity, age and rank;
edits apply instantly and are confirmed by the remote store in the background.

Run 'bb serve' to start a board server, then use the other commands against it.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("bb version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupSignalContext()
		applyVerbosityFlags()
		applyViperOverrides(cmd)
		cmd.SetContext(rootCtx)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyVerbosityFlags propagates --verbose and --quiet to the debug package
// so every logger created afterwards respects them.
func applyVerbosityFlags() {
	debug.SetVerbose(verboseFlag)
	debug.SetQuiet(quietFlag)
}

// applyViperOverrides fills flags that were not set on the command line from
// viper (config file + env vars). Priority: flags > viper > defaults.
func applyViperOverrides(cmd *cobra.Command) {
	if !cmd.Flags().Changed("server") {
		serverURL = config.GetString("server")
	}
	if !cmd.Flags().Changed("token") {
		authToken = config.GetString("auth-token")
	}
	if !cmd.Flags().Changed("json") && config.GetBool("json") {
		jsonOutput = true
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
