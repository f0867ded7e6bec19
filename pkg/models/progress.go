package models

import "time"

// TaskState represents the execution state of a progress task.
type TaskState string

const (
	// TaskStatePending indicates the task has not started.
	TaskStatePending TaskState = "pending"
	// TaskStateInProgress indicates a worker is executing the task.
	TaskStateInProgress TaskState = "in_progress"
	// TaskStateCompleted indicates the task finished successfully.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed indicates the task failed.
	TaskStateFailed TaskState = "failed"
)

// Valid returns true if the state is a known value.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStatePending, TaskStateInProgress, TaskStateCompleted, TaskStateFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from
// this state. Only completed is terminal: failed tasks may be retried.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted
}

// CanTransition reports whether the edge s -> to is a legal
// state-machine transition. Duplicate transitions (s == to) are never
// legal; this is what makes racing callers fail definitively instead
// of both appearing to succeed.
func (s TaskState) CanTransition(to TaskState) bool {
	switch s {
	case TaskStatePending:
		return to == TaskStateInProgress
	case TaskStateInProgress:
		return to == TaskStateCompleted || to == TaskStateFailed
	case TaskStateFailed:
		return to == TaskStateInProgress
	default:
		return false
	}
}

// SelfHealAttempt records one corrective action taken against a failed
// task.
type SelfHealAttempt struct {
	// Attempt is the 1-based attempt number.
	Attempt int `json:"attempt"`
	// Action describes the corrective action taken.
	Action string `json:"action"`
	// Timestamp is when the attempt was made.
	Timestamp time.Time `json:"timestamp"`
	// Result describes the outcome, if known.
	Result string `json:"result,omitempty"`
}

// ProgressTask is the mutable execution record for one plan task,
// derived 1:1 from a Task by ID.
type ProgressTask struct {
	ID              string   `json:"id"`
	DesignatedAgent string   `json:"designated_agent"`
	Description     string   `json:"description"`
	FilesToModify   []string `json:"files_to_modify"`
	Dependencies    []string `json:"dependencies"`

	// State is the current execution state.
	State TaskState `json:"state"`
	// AgentSessionID identifies the worker's own conversation. It is
	// distinct from the orchestration session ID.
	AgentSessionID string `json:"agent_session_id,omitempty"`
	// FilesModified lists paths the worker reported touching.
	FilesModified []string `json:"files_modified,omitempty"`
	// Summary is the worker's report, or a failure diagnostic.
	Summary string `json:"summary,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`

	// SelfHealAttempts counts corrective retries taken so far.
	SelfHealAttempts int `json:"self_heal_attempts"`
	// SelfHealHistory records each corrective action in order.
	SelfHealHistory []SelfHealAttempt `json:"self_heal_history,omitempty"`
}

// NewProgressTask derives a pending progress record from a plan task.
func NewProgressTask(t Task) ProgressTask {
	return ProgressTask{
		ID:              t.ID,
		DesignatedAgent: t.DesignatedAgent,
		Description:     t.Description,
		FilesToModify:   append([]string(nil), t.FilesToModify...),
		Dependencies:    append([]string(nil), t.Dependencies...),
		State:           TaskStatePending,
	}
}

// ProgressDocument is the execution truth for a session. It is the
// single document mutated during a run.
type ProgressDocument struct {
	// PlanFileRef names the plan document this progress derives from.
	PlanFileRef string `json:"plan_file_ref"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	// RevisionTag mirrors the plan revision this progress tracks.
	RevisionTag string `json:"revision_tag,omitempty"`
	// Tasks is kept bijective with the plan's task list by ID.
	Tasks []ProgressTask `json:"tasks"`
}

// TaskByID returns the progress task with the given ID, or nil.
func (p *ProgressDocument) TaskByID(id string) *ProgressTask {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// InProgress returns the task currently in_progress, or nil. At most
// one task may be in_progress per session at any observable instant.
func (p *ProgressDocument) InProgress() *ProgressTask {
	for i := range p.Tasks {
		if p.Tasks[i].State == TaskStateInProgress {
			return &p.Tasks[i]
		}
	}
	return nil
}

// Failed returns all tasks currently in the failed state, in
// declaration order.
func (p *ProgressDocument) Failed() []ProgressTask {
	var failed []ProgressTask
	for _, t := range p.Tasks {
		if t.State == TaskStateFailed {
			failed = append(failed, t)
		}
	}
	return failed
}

// Status classifies the session from its task dispositions. A task
// in_progress means the session is running; otherwise every task
// completed means completed, nothing completed with at least one
// failure means failed, and any mix means partial.
func (p *ProgressDocument) Status() SessionStatus {
	completed, failed := 0, 0
	for _, t := range p.Tasks {
		switch t.State {
		case TaskStateInProgress:
			return SessionRunning
		case TaskStateCompleted:
			completed++
		case TaskStateFailed:
			failed++
		}
	}

	switch {
	case len(p.Tasks) > 0 && completed == len(p.Tasks):
		return SessionCompleted
	case completed == 0 && failed > 0:
		return SessionFailed
	case completed > 0:
		return SessionPartial
	default:
		return SessionRunning
	}
}

// SessionStatus classifies the overall outcome of a run.
type SessionStatus string

const (
	// SessionRunning indicates the session is mid-run.
	SessionRunning SessionStatus = "running"
	// SessionCompleted indicates every task completed.
	SessionCompleted SessionStatus = "completed"
	// SessionFailed indicates no task completed and at least one failed.
	SessionFailed SessionStatus = "failed"
	// SessionPartial indicates some tasks completed while others failed
	// or remained blocked behind failures.
	SessionPartial SessionStatus = "partial"
)
