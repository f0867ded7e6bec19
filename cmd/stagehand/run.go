package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/engine"
	"github.com/stagehand-dev/stagehand/internal/watch"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

var (
	runWatch    bool
	runPlanFile string
)

var runCmd = &cobra.Command{
	Use:   "run <session-id>",
	Short: "Execute a session's tasks",
	Long: `Execute every runnable task of the session in dependency order,
one at a time.

Tasks that fail for a recognized, recoverable reason (wrong agent
dispatched, timeout, interrupted run) are retried automatically up to
the configured attempt ceiling. Tasks blocked behind a failure stay
pending; re-running the session after fixing the cause picks them up.

With --watch, the plan file is monitored after each run: saving a
change merges it into the session and triggers another run. Interrupt
with Ctrl-C; progress is durable and the session can be resumed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Re-run when the plan file changes")
	runCmd.Flags().StringVarP(&runPlanFile, "file", "f", "", "Plan file to watch (required with --watch)")
}

func runRun(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	if runWatch && runPlanFile == "" {
		return fmt.Errorf("--watch requires --file")
	}

	st, cfg, err := openStore()
	if err != nil {
		return err
	}

	session, err := buildSession(cfg)
	if err != nil {
		return err
	}

	recorder, closeRecorder, err := buildRecorder(cfg)
	if err != nil {
		return err
	}
	defer closeRecorder()

	logger := engine.NewDebugLoggerForDataDir(resolveDataDir(cfg))
	defer logger.Close()

	eng, err := engine.New(engine.Options{
		Store:    st,
		Session:  session,
		Recorder: recorder,
		Healer:   engine.NewSelfHealer(cfg.SelfHeal.MaxAttempts),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !runWatch {
		return runOnce(ctx, eng, sessionID)
	}
	return runWatched(ctx, eng, st, sessionID)
}

func runOnce(ctx context.Context, eng *engine.Engine, sessionID string) error {
	result, err := eng.Run(ctx, sessionID)
	if err != nil {
		return err
	}
	printRunResult(result)
	return nil
}

// runWatched runs the session, then re-runs it each time the plan file
// changes. Plan changes are merged into the session before each run.
func runWatched(ctx context.Context, eng *engine.Engine, st planMerger, sessionID string) error {
	changed := make(chan struct{}, 1)
	w, err := watch.New(runPlanFile, func(string) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go w.Run(watchCtx)

	for {
		if err := runOnce(ctx, eng, sessionID); err != nil {
			return err
		}

		fmt.Printf("\nWatching %s for changes (Ctrl-C to stop)\n", runPlanFile)
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}

		plan, err := loadPlanFile(runPlanFile)
		if err != nil {
			fmt.Printf("%s %v\n", color.YellowString("⚠"), err)
			continue
		}
		if _, _, _, err := st.CreateOrUpdatePlan(sessionID, plan); err != nil {
			fmt.Printf("%s plan rejected: %v\n", color.YellowString("⚠"), err)
			continue
		}
		fmt.Printf("%s plan updated, re-running\n", color.CyanString("↻"))
	}
}

// planMerger is the slice of the store the watch loop needs.
type planMerger interface {
	CreateOrUpdatePlan(sessionID string, plan *models.PlanDocument) (string, *models.PlanDocument, *models.ProgressDocument, error)
}

func printRunResult(result *engine.RunResult) {
	fmt.Println()
	switch result.Status {
	case models.SessionCompleted:
		fmt.Printf("%s session %s completed: %d/%d tasks\n",
			color.GreenString("✓"), result.SessionID, len(result.Completed), taskCount(result))
	case models.SessionFailed:
		fmt.Printf("%s session %s failed: %d failed, %d blocked\n",
			color.RedString("✗"), result.SessionID, len(result.Failed), len(result.Blocked))
	default:
		fmt.Printf("%s session %s partial: %d completed, %d failed, %d blocked\n",
			color.YellowString("⚠"), result.SessionID, len(result.Completed), len(result.Failed), len(result.Blocked))
	}

	if len(result.Failed) > 0 {
		fmt.Printf("\nInspect failures with:\n  stagehand failed %s\n", result.SessionID)
	}
}

func taskCount(result *engine.RunResult) int {
	return len(result.Completed) + len(result.Failed) + len(result.Blocked)
}
