package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	ids, err := st.Sessions()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No sessions. Submit a plan with 'stagehand plan -f plan.yaml'.")
		return nil
	}

	for _, id := range ids {
		plan, progress, err := st.Get(id)
		if err != nil {
			fmt.Printf("  %-12s %s\n", id, dimStyle.Render("(unreadable)"))
			continue
		}
		fmt.Printf("  %-12s %-22s %d tasks  %s\n",
			id, renderStatus(progress.Status()), len(progress.Tasks), plan.Synopsis)
	}
	return nil
}
