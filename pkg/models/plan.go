package models

import "time"

// Task is one unit of work in a plan. Tasks are immutable once a plan
// is submitted; execution state lives on ProgressTask.
type Task struct {
	// ID is the unique identifier for this task within a plan.
	ID string `json:"id" yaml:"id"`
	// DesignatedAgent is the worker type that should execute this task.
	DesignatedAgent string `json:"designated_agent" yaml:"designated_agent"`
	// Description is what the task should accomplish.
	Description string `json:"description" yaml:"description"`
	// FilesToModify lists the paths this task is expected to touch.
	FilesToModify []string `json:"files_to_modify" yaml:"files_to_modify"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
}

// PlanDocument is the declared intent for a session: the task set with
// descriptions and dependencies. Replacing it does not discard
// execution history; see store.Reconcile.
type PlanDocument struct {
	// TaskDescription is the overall goal the plan decomposes.
	TaskDescription string `json:"task_description" yaml:"task_description"`
	// Synopsis is a short summary of the plan.
	Synopsis string `json:"synopsis" yaml:"synopsis"`
	// CreatedAt is when the plan was first submitted.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// RevisionTag optionally identifies the source revision (e.g. a
	// commit hash) the plan was authored against.
	RevisionTag string `json:"revision_tag,omitempty" yaml:"revision_tag,omitempty"`
	// Tasks is the ordered task list. Declaration order breaks ties in
	// the execution order.
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// TaskByID returns the task with the given ID, or nil if absent.
func (p *PlanDocument) TaskByID(id string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}
