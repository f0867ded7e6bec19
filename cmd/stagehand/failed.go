package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var failedCmd = &cobra.Command{
	Use:   "failed <session-id>",
	Short: "List a session's failed tasks",
	Long: `List every task currently in the failed state with its failure
summary and self-heal history. Failed tasks are retried on the next
run only if their failure is a recognized recoverable cause; anything
listed here after a run needs a plan change or a manual fix.`,
	Args: cobra.ExactArgs(1),
	RunE: runFailed,
}

func runFailed(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	st, _, err := openStore()
	if err != nil {
		return err
	}

	failed, err := st.FailedTasks(sessionID)
	if err != nil {
		return err
	}

	if len(failed) == 0 {
		fmt.Printf("%s no failed tasks in session %s\n", color.GreenString("✓"), sessionID)
		return nil
	}

	for _, task := range failed {
		fmt.Printf("%s %s (%s)\n", color.RedString("✗"), task.ID, task.DesignatedAgent)
		if task.Summary != "" {
			fmt.Printf("    %s\n", task.Summary)
		}
		for _, attempt := range task.SelfHealHistory {
			fmt.Printf("    %s\n", dimStyle.Render(fmt.Sprintf(
				"heal %d: %s → %s", attempt.Attempt, attempt.Action, attempt.Result)))
		}
	}
	return nil
}
