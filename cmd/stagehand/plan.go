package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/store"
)

var (
	planFile    string
	planSession string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Submit a task plan and create a session",
	Long: `Validate a YAML plan file and persist it as a new session.

The plan must name at least one task, every task needs an id, a
designated agent and a description, and the dependency graph must be
acyclic. Nothing is stored if validation fails.

With --session, the plan replaces an existing session's plan instead:
completed and failed tasks keep their history, new tasks join as
pending, and removed tasks are dropped.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFile, "file", "f", "", "Plan file to submit (required)")
	planCmd.Flags().StringVar(&planSession, "session", "", "Existing session to replan")
	planCmd.MarkFlagRequired("file")
}

func runPlan(cmd *cobra.Command, args []string) error {
	plan, err := loadPlanFile(planFile)
	if err != nil {
		return err
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}

	sessionID, stored, progress, err := st.CreateOrUpdatePlan(planSession, plan)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			return fmt.Errorf("plan rejected: %w", err)
		}
		return err
	}

	fmt.Printf("%s session %s\n", color.GreenString("✓"), sessionID)
	fmt.Printf("  %s\n", stored.Synopsis)
	fmt.Printf("  %d tasks (%d pending)\n", len(progress.Tasks), countPending(progress.Tasks))
	fmt.Printf("\nRun it with:\n  stagehand run %s\n", sessionID)
	return nil
}
