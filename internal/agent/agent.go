// Package agent defines the contract between the orchestration engine
// and the workers that execute tasks, plus the built-in worker
// implementations. The engine only sees the Session interface; it
// never calls a model API itself.
package agent

import (
	"context"
	"fmt"
	"time"
)

// InvokeRequest describes one task dispatch to a worker.
type InvokeRequest struct {
	// AgentType is the worker type to dispatch (the task's designated
	// agent, or the self-healer's corrected choice).
	AgentType string
	// TaskID is the plan task being executed.
	TaskID string
	// Prompt is the work description handed to the worker.
	Prompt string
	// OrchestrationSessionID is the owning session. It is distinct
	// from the worker's own conversation identity.
	OrchestrationSessionID string
	// AgentSessionID is the conversation identity assigned to this
	// invocation. Workers adopt it when set; otherwise they mint one.
	AgentSessionID string
}

// InvokeResult is a worker's report for one invocation.
type InvokeResult struct {
	// Success reports whether the worker considers the task done.
	Success bool `json:"success"`
	// AgentSessionID is the worker's own conversation identity.
	AgentSessionID string `json:"agent_session_id"`
	// FilesModified lists paths the worker touched.
	FilesModified []string `json:"files_modified"`
	// Summary describes what was done, or why it failed.
	Summary string `json:"summary"`
	// Error carries the failure detail when Success is false.
	Error string `json:"error,omitempty"`
}

// Session executes one task's work and reports the outcome. An error
// return means the invocation itself broke (transport, timeout); a
// result with Success == false means the worker ran and failed.
type Session interface {
	Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error)
}

// Resumer is implemented by sessions that can continue a worker's
// prior conversation instead of starting fresh.
type Resumer interface {
	Resume(ctx context.Context, priorAgentSessionID, prompt string) (*InvokeResult, error)
}

// WithTimeout wraps a Session so every invocation is bounded by the
// given deadline. Exceeding it surfaces as an invocation error, which
// the engine treats as a task failure like any other.
func WithTimeout(inner Session, timeout time.Duration) Session {
	if timeout <= 0 {
		return inner
	}
	return &timeoutSession{inner: inner, timeout: timeout}
}

type timeoutSession struct {
	inner   Session
	timeout time.Duration
}

func (t *timeoutSession) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.inner.Invoke(ctx, req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("agent invocation timed out after %s: %w", t.timeout, err)
		}
		return nil, err
	}
	return result, nil
}
