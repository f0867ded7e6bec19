package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's plan and progress",
	Long: `Display the state of every task in the session, the overall
completion percentage, and a comparison of planned versus actually
modified files.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	st, _, err := openStore()
	if err != nil {
		return err
	}

	plan, progress, err := st.Get(sessionID)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Session %s", sessionID)))
	fmt.Printf("  %s\n", plan.Synopsis)
	fmt.Printf("  status: %s\n\n", renderStatus(progress.Status()))

	for _, task := range progress.Tasks {
		fmt.Println(renderTaskLine(task))
	}

	report, err := st.Compare(sessionID)
	if err != nil {
		return err
	}
	fmt.Printf("\n  %d/%d tasks completed (%.0f%%)\n",
		report.CompletedTasks, report.TotalTasks, report.CompletionPercent)

	for _, tr := range report.Tasks {
		if len(tr.UnplannedFiles) == 0 {
			continue
		}
		fmt.Printf("  %s touched unplanned files: %v\n", tr.ID, tr.UnplannedFiles)
	}

	return nil
}
