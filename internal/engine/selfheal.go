package engine

import (
	"fmt"
	"strings"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// DefaultMaxHealAttempts bounds corrective retries per task.
const DefaultMaxHealAttempts = 3

// Action is a self-healer verdict for one failed task.
type Action struct {
	// Retry reports whether the task should be re-dispatched.
	Retry bool
	// AgentType is the worker to retry with. Set only when Retry is true.
	AgentType string
	// ResumePrior requests continuing the failed attempt's worker
	// conversation instead of starting fresh. Never set when the retry
	// corrects the agent type.
	ResumePrior bool
	// Reason names the failure class the verdict is based on.
	Reason string
}

// Describe renders the action for the self-heal history record.
func (a Action) Describe() string {
	if !a.Retry {
		return fmt.Sprintf("no action (%s)", a.Reason)
	}
	return fmt.Sprintf("retry with agent %s (%s)", a.AgentType, a.Reason)
}

// SelfHealer inspects failed tasks and decides whether a bounded,
// corrective retry is warranted. It only recognizes failure classes
// with a known fix; everything else is left failed for a human.
type SelfHealer struct {
	// MaxAttempts caps retries per task. Zero means DefaultMaxHealAttempts.
	MaxAttempts int
}

// NewSelfHealer creates a healer with the given retry ceiling.
func NewSelfHealer(maxAttempts int) *SelfHealer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxHealAttempts
	}
	return &SelfHealer{MaxAttempts: maxAttempts}
}

// ceiling returns the effective attempt cap.
func (h *SelfHealer) ceiling() int {
	if h == nil || h.MaxAttempts <= 0 {
		return DefaultMaxHealAttempts
	}
	return h.MaxAttempts
}

// Diagnose classifies a failed task's summary and returns the
// corrective action. The task's recorded failure summary is the only
// evidence inspected.
func (h *SelfHealer) Diagnose(task *models.ProgressTask) Action {
	summary := strings.ToLower(task.Summary)

	switch {
	case strings.Contains(summary, "wrong agent"),
		strings.Contains(summary, "agent mismatch"),
		strings.Contains(summary, "unknown agent"):
		// A dispatch went to the wrong worker type. Retrying with the
		// plan's designated agent is the fix.
		return Action{Retry: true, AgentType: task.DesignatedAgent, Reason: "agent mismatch"}

	case strings.Contains(summary, "timed out"),
		strings.Contains(summary, "timeout"),
		strings.Contains(summary, "deadline exceeded"):
		return Action{Retry: true, AgentType: task.DesignatedAgent, ResumePrior: true, Reason: "timeout"}

	case strings.Contains(summary, "execution interrupted"),
		strings.Contains(summary, "interrupted"):
		return Action{Retry: true, AgentType: task.DesignatedAgent, ResumePrior: true, Reason: "interrupted"}

	default:
		return Action{Retry: false, Reason: "unrecognized failure"}
	}
}

// CanHeal reports whether a corrective retry is both warranted and
// still within the per-task attempt ceiling.
func (h *SelfHealer) CanHeal(task *models.ProgressTask) (Action, bool) {
	action := h.Diagnose(task)
	if !action.Retry {
		return action, false
	}
	if task.SelfHealAttempts >= h.ceiling() {
		return action, false
	}
	return action, true
}
