package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/store"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

var (
	updateAgentSession string
	updateFiles        []string
	updateSummary      string
)

var updateCmd = &cobra.Command{
	Use:   "update <session-id> <task-id> <state>",
	Short: "Manually transition a task's state",
	Long: `Apply one task-state transition by hand, for workers that report
out of band.

Legal transitions: pending to in_progress, in_progress to completed or
failed, failed to in_progress. Anything else, including repeating the
current state, is rejected and leaves the stored document untouched.`,
	Args: cobra.ExactArgs(3),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateAgentSession, "agent-session", "", "Worker conversation ID (recorded on in_progress)")
	updateCmd.Flags().StringSliceVar(&updateFiles, "files", nil, "Modified files (recorded on completed)")
	updateCmd.Flags().StringVar(&updateSummary, "summary", "", "Outcome summary (recorded on completed or failed)")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	sessionID, taskID := args[0], args[1]
	state := models.TaskState(args[2])

	if !state.Valid() {
		return fmt.Errorf("unknown state %q (want pending, in_progress, completed or failed)", args[2])
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}

	task, err := st.Transition(sessionID, taskID, state, store.TransitionFields{
		AgentSessionID: updateAgentSession,
		FilesModified:  updateFiles,
		Summary:        updateSummary,
	})
	if err != nil {
		var te *store.TransitionError
		if errors.As(err, &te) {
			return fmt.Errorf("task %s cannot go %s → %s", te.TaskID, te.From, te.To)
		}
		return err
	}

	fmt.Printf("%s %s is now %s\n", color.GreenString("✓"), task.ID, renderState(task.State))
	return nil
}
