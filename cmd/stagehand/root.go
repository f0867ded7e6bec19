package main

import (
	"os"

	"github.com/spf13/cobra"
)

var flagDataDir string

var rootCmd = &cobra.Command{
	Use:   "stagehand",
	Short: "Self-healing agent workflow orchestrator",
	Long: `Stagehand executes task plans with AI worker agents.

A plan is a YAML task list with dependencies. Stagehand validates it,
persists it as a session, and runs the tasks one at a time in
dependency order, recording every state change durably. Failed tasks
with a recognized cause are retried automatically; everything else is
left for inspection with 'stagehand failed'.

Plans can be replaced mid-session: execution history for unchanged
tasks is preserved and new tasks join as pending.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Override the session data directory")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(failedCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)
}
