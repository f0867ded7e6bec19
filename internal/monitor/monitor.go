// Package monitor records orchestration lifecycle events for
// observability. Recorder failures must never affect orchestration
// correctness: the engine calls every method fire-and-forget.
package monitor

import "github.com/stagehand-dev/stagehand/pkg/models"

// Recorder receives lifecycle events from the orchestration engine.
type Recorder interface {
	OnOrchestrationStart(sessionID string, taskCount int) error
	OnOrchestrationComplete(sessionID string, status models.SessionStatus) error
	OnTaskStart(sessionID, taskID, agentType string) error
	OnTaskComplete(sessionID, taskID string, state models.TaskState, summary string) error
}

// NopRecorder discards all events. Used when monitoring is disabled.
type NopRecorder struct{}

func (NopRecorder) OnOrchestrationStart(string, int) error { return nil }

func (NopRecorder) OnOrchestrationComplete(string, models.SessionStatus) error { return nil }

func (NopRecorder) OnTaskStart(string, string, string) error { return nil }

func (NopRecorder) OnTaskComplete(string, string, models.TaskState, string) error { return nil }

// Compile-time verification that both implementations satisfy Recorder.
var (
	_ Recorder = NopRecorder{}
	_ Recorder = (*DB)(nil)
)
