package store

import "github.com/stagehand-dev/stagehand/pkg/models"

// TaskReport compares one task's planned files against what its worker
// actually reported modifying.
type TaskReport struct {
	ID            string           `json:"id"`
	State         models.TaskState `json:"state"`
	PlannedFiles  []string         `json:"planned_files"`
	ModifiedFiles []string         `json:"modified_files"`
	// UnplannedFiles were modified but never declared in the plan.
	UnplannedFiles []string `json:"unplanned_files,omitempty"`
}

// Report is the completion report for a session: planned vs. actual
// work per task, plus the overall completion percentage.
type Report struct {
	SessionID         string       `json:"session_id"`
	TotalTasks        int          `json:"total_tasks"`
	CompletedTasks    int          `json:"completed_tasks"`
	FailedTasks       int          `json:"failed_tasks"`
	CompletionPercent float64      `json:"completion_percent"`
	Tasks             []TaskReport `json:"tasks"`
}

// Compare builds the completion report for a session.
func (s *Store) Compare(sessionID string) (*Report, error) {
	_, progress, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		SessionID:  sessionID,
		TotalTasks: len(progress.Tasks),
		Tasks:      make([]TaskReport, 0, len(progress.Tasks)),
	}

	for _, t := range progress.Tasks {
		switch t.State {
		case models.TaskStateCompleted:
			report.CompletedTasks++
		case models.TaskStateFailed:
			report.FailedTasks++
		}

		planned := make(map[string]bool, len(t.FilesToModify))
		for _, f := range t.FilesToModify {
			planned[f] = true
		}
		var unplanned []string
		for _, f := range t.FilesModified {
			if !planned[f] {
				unplanned = append(unplanned, f)
			}
		}

		report.Tasks = append(report.Tasks, TaskReport{
			ID:             t.ID,
			State:          t.State,
			PlannedFiles:   t.FilesToModify,
			ModifiedFiles:  t.FilesModified,
			UnplannedFiles: unplanned,
		})
	}

	if report.TotalTasks > 0 {
		report.CompletionPercent = 100 * float64(report.CompletedTasks) / float64(report.TotalTasks)
	}

	return report, nil
}
