// Package engine drives a session's plan to completion: it walks the
// dependency graph in deterministic order, dispatches one task at a
// time to a worker session, records every state change durably, and
// applies bounded self-healing to recoverable failures.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stagehand-dev/stagehand/internal/agent"
	"github.com/stagehand-dev/stagehand/internal/graph"
	"github.com/stagehand-dev/stagehand/internal/monitor"
	"github.com/stagehand-dev/stagehand/internal/store"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

// interruptedSummary marks a task that was in_progress when a previous
// run died. The self-healer recognizes it as retryable.
const interruptedSummary = "execution interrupted"

// Engine executes a stored session plan against a worker session.
type Engine struct {
	store    *store.Store
	session  agent.Session
	recorder monitor.Recorder
	healer   *SelfHealer
	logger   *DebugLogger
}

// Options configures an Engine. Store and Session are required.
type Options struct {
	Store   *store.Store
	Session agent.Session
	// Recorder receives lifecycle events. Nil means no monitoring.
	Recorder monitor.Recorder
	// Healer decides corrective retries. Nil means a default healer.
	Healer *SelfHealer
	// Logger receives debug output. Nil means no logging.
	Logger *DebugLogger
}

// New creates an engine from options, filling in defaults.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine requires a store")
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("engine requires a worker session")
	}

	recorder := opts.Recorder
	if recorder == nil {
		recorder = monitor.NopRecorder{}
	}
	healer := opts.Healer
	if healer == nil {
		healer = NewSelfHealer(DefaultMaxHealAttempts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}

	return &Engine{
		store:    opts.Store,
		session:  opts.Session,
		recorder: recorder,
		healer:   healer,
		logger:   logger,
	}, nil
}

// RunResult summarizes one engine run over a session.
type RunResult struct {
	SessionID string
	Status    models.SessionStatus
	// Completed, Failed and Blocked list task IDs by final disposition.
	// Blocked tasks stayed pending because a dependency did not complete
	// or the run was canceled before reaching them.
	Completed []string
	Failed    []string
	Blocked   []string
}

// Run executes every runnable task of the session in dependency order,
// one at a time. Tasks whose dependencies did not all complete are left
// pending. Returns the run classification; an error return means the
// run itself could not proceed (missing session, invalid plan), not
// that tasks failed.
func (e *Engine) Run(ctx context.Context, sessionID string) (*RunResult, error) {
	plan, progress, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	g, err := graph.Build(plan.Tasks)
	if err != nil {
		return nil, fmt.Errorf("plan for session %s: %w", sessionID, err)
	}
	order := g.ExecutionOrder()

	e.logger.Log("run session=%s tasks=%d", sessionID, len(order))
	e.record(func() error { return e.recorder.OnOrchestrationStart(sessionID, len(order)) })

	// A task left in_progress by a dead run violates the
	// at-most-one-running invariant. Fail it before walking; the
	// self-healer will pick it up when its turn comes.
	if lingering := progress.InProgress(); lingering != nil {
		e.logger.Log("session=%s task=%s found in_progress on resume, marking failed", sessionID, lingering.ID)
		if _, err := e.store.Transition(sessionID, lingering.ID, models.TaskStateFailed, store.TransitionFields{
			Summary: interruptedSummary,
		}); err != nil {
			return nil, fmt.Errorf("reset interrupted task %s: %w", lingering.ID, err)
		}
	}

	result := &RunResult{SessionID: sessionID}
	completed := make(map[string]bool)

	for _, id := range order {
		if ctx.Err() != nil {
			e.logger.Log("session=%s canceled before task=%s", sessionID, id)
			break
		}

		_, progress, err = e.store.Get(sessionID)
		if err != nil {
			return nil, err
		}
		task := progress.TaskByID(id)
		if task == nil {
			// A concurrent replan removed the task; nothing to run.
			e.logger.Log("session=%s task=%s removed by replan, skipping", sessionID, id)
			continue
		}

		if task.State == models.TaskStateCompleted {
			completed[id] = true
			continue
		}

		if !e.depsCompleted(task, completed) {
			e.logger.Log("session=%s task=%s blocked by incomplete dependency", sessionID, id)
			continue
		}

		final, err := e.executeTask(ctx, sessionID, task)
		if err != nil {
			return nil, err
		}
		if final.State == models.TaskStateCompleted {
			completed[id] = true
		}
	}

	_, progress, err = e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	for _, id := range order {
		task := progress.TaskByID(id)
		if task == nil {
			continue
		}
		switch task.State {
		case models.TaskStateCompleted:
			result.Completed = append(result.Completed, id)
		case models.TaskStateFailed:
			result.Failed = append(result.Failed, id)
		default:
			result.Blocked = append(result.Blocked, id)
		}
	}
	total := len(result.Completed) + len(result.Failed) + len(result.Blocked)
	result.Status = classify(total, len(result.Completed), len(result.Failed))

	e.logger.Log("run session=%s status=%s completed=%d failed=%d blocked=%d",
		sessionID, result.Status, len(result.Completed), len(result.Failed), len(result.Blocked))
	e.record(func() error { return e.recorder.OnOrchestrationComplete(sessionID, result.Status) })

	return result, nil
}

// classify derives the session outcome from task dispositions: every
// task completed means completed, nothing completed means failed, and
// any mix means partial.
func classify(total, completed, failed int) models.SessionStatus {
	switch {
	case total > 0 && completed == total:
		return models.SessionCompleted
	case completed == 0:
		return models.SessionFailed
	default:
		return models.SessionPartial
	}
}

// depsCompleted reports whether every dependency of the task has
// completed in this run.
func (e *Engine) depsCompleted(task *models.ProgressTask, completed map[string]bool) bool {
	for _, dep := range task.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// executeTask drives one task to a terminal disposition for this run:
// an initial dispatch for pending tasks, then corrective retries while
// the self-healer allows them. Returns the task's final record.
func (e *Engine) executeTask(ctx context.Context, sessionID string, task *models.ProgressTask) (*models.ProgressTask, error) {
	current := task

	if current.State == models.TaskStatePending {
		updated, err := e.dispatch(ctx, sessionID, current, current.DesignatedAgent, nil, false)
		if err != nil {
			return nil, err
		}
		current = updated
	}

	for current.State == models.TaskStateFailed {
		action, ok := e.healer.CanHeal(current)
		if !ok {
			e.logger.Log("session=%s task=%s not healing: %s (attempts=%d)",
				sessionID, current.ID, action.Reason, current.SelfHealAttempts)
			break
		}

		e.logger.Log("session=%s task=%s self-heal attempt=%d action=%q",
			sessionID, current.ID, current.SelfHealAttempts+1, action.Describe())

		heal := &models.SelfHealAttempt{Action: action.Describe()}
		updated, err := e.dispatch(ctx, sessionID, current, action.AgentType, heal, action.ResumePrior)
		if err != nil {
			return nil, err
		}

		outcome := string(updated.State)
		if updated.State == models.TaskStateFailed {
			outcome = fmt.Sprintf("failed: %s", updated.Summary)
		}
		if err := e.store.RecordSelfHealOutcome(sessionID, current.ID, outcome); err != nil {
			return nil, err
		}
		current = updated

		if ctx.Err() != nil {
			break
		}
	}

	return current, nil
}

// dispatch moves the task to in_progress, invokes the worker once, and
// records the terminal transition for this invocation. With resumePrior
// set and a resume-capable session, the failed attempt's conversation
// is continued instead of starting fresh.
func (e *Engine) dispatch(ctx context.Context, sessionID string, task *models.ProgressTask, agentType string, heal *models.SelfHealAttempt, resumePrior bool) (*models.ProgressTask, error) {
	resumer, canResume := e.session.(agent.Resumer)
	resuming := resumePrior && canResume && task.AgentSessionID != ""

	agentSessionID := task.AgentSessionID
	if !resuming {
		agentSessionID = uuid.New().String()
	}

	if _, err := e.store.Transition(sessionID, task.ID, models.TaskStateInProgress, store.TransitionFields{
		AgentSessionID: agentSessionID,
		SelfHeal:       heal,
	}); err != nil {
		return nil, fmt.Errorf("start task %s: %w", task.ID, err)
	}

	e.record(func() error { return e.recorder.OnTaskStart(sessionID, task.ID, agentType) })
	e.logger.Log("session=%s task=%s dispatched agent=%s resume=%t", sessionID, task.ID, agentType, resuming)

	// Run cancellation stops new dispatches but never kills an in-flight
	// invocation; the worker's own timeout still bounds it.
	invokeCtx := context.WithoutCancel(ctx)

	var invokeResult *agent.InvokeResult
	var invokeErr error
	if resuming {
		invokeResult, invokeErr = resumer.Resume(invokeCtx, agentSessionID, task.Description)
	} else {
		invokeResult, invokeErr = e.session.Invoke(invokeCtx, agent.InvokeRequest{
			AgentType:              agentType,
			TaskID:                 task.ID,
			Prompt:                 task.Description,
			OrchestrationSessionID: sessionID,
			AgentSessionID:         agentSessionID,
		})
	}

	var updated *models.ProgressTask
	var err error

	switch {
	case invokeErr != nil:
		updated, err = e.store.Transition(sessionID, task.ID, models.TaskStateFailed, store.TransitionFields{
			Summary: invokeErr.Error(),
		})
	case !invokeResult.Success:
		summary := invokeResult.Error
		if summary == "" {
			summary = invokeResult.Summary
		}
		updated, err = e.store.Transition(sessionID, task.ID, models.TaskStateFailed, store.TransitionFields{
			Summary: summary,
		})
	default:
		updated, err = e.store.Transition(sessionID, task.ID, models.TaskStateCompleted, store.TransitionFields{
			FilesModified: invokeResult.FilesModified,
			Summary:       invokeResult.Summary,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("record outcome for task %s: %w", task.ID, err)
	}

	e.record(func() error { return e.recorder.OnTaskComplete(sessionID, task.ID, updated.State, updated.Summary) })
	e.logger.Log("session=%s task=%s state=%s", sessionID, task.ID, updated.State)

	return updated, nil
}

// record emits one monitoring event. Recorder errors and panics are
// logged and swallowed; monitoring never disturbs execution.
func (e *Engine) record(fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Log("recorder panic: %v", r)
		}
	}()

	if err := fn(); err != nil {
		e.logger.Log("recorder error: %v", err)
	}
}
