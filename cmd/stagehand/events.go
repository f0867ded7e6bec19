package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/monitor"
)

var eventsPurge bool

var eventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Show recorded lifecycle events for a session",
	Long: `Print the monitoring event log for a session: run starts and
outcomes, task dispatches and their results.

With --purge, events older than the configured retention window are
deleted first.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsPurge, "purge", false, "Delete events past the retention window")
}

func runEvents(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	_, cfg, err := openStore()
	if err != nil {
		return err
	}
	if !cfg.Monitor.Enabled {
		fmt.Println("Monitoring is disabled (monitor.enabled: false).")
		return nil
	}

	db, err := monitor.Open(monitor.DefaultPath(resolveDataDir(cfg)))
	if err != nil {
		return err
	}
	defer db.Close()

	if eventsPurge {
		retention := time.Duration(cfg.Monitor.RetentionDays) * 24 * time.Hour
		purged, err := db.PurgeOldEvents(retention)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d events older than %d days.\n\n", purged, cfg.Monitor.RetentionDays)
	}

	events, err := db.SessionEvents(sessionID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Printf("No recorded events for session %s.\n", sessionID)
		return nil
	}

	for _, e := range events {
		when := e.CreatedAt.Local().Format("2006-01-02 15:04:05")
		if e.TaskID != "" {
			fmt.Printf("  %s  %-22s %-10s %s\n", dimStyle.Render(when), e.Event, e.TaskID, e.Detail)
		} else {
			fmt.Printf("  %s  %-22s %s\n", dimStyle.Render(when), e.Event, e.Detail)
		}
	}
	return nil
}
