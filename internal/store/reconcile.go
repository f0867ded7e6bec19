package store

import (
	"time"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// Reconcile merges a new plan into an existing progress document.
// It is pure so the merge semantics can be tested without I/O.
//
// For each task ID present in both the old progress and the new plan,
// the new structural fields (description, files, dependencies, agent)
// are adopted while all mutable execution state is preserved verbatim.
// Task IDs only in the new plan are inserted as pending. Task IDs only
// in the old progress are dropped. Result task order follows the new
// plan's declaration order.
func Reconcile(old *models.ProgressDocument, plan *models.PlanDocument, now time.Time) *models.ProgressDocument {
	prior := make(map[string]models.ProgressTask, len(old.Tasks))
	for _, t := range old.Tasks {
		prior[t.ID] = t
	}

	merged := &models.ProgressDocument{
		PlanFileRef: old.PlanFileRef,
		CreatedAt:   old.CreatedAt,
		LastUpdated: now,
		RevisionTag: plan.RevisionTag,
		Tasks:       make([]models.ProgressTask, 0, len(plan.Tasks)),
	}

	for _, task := range plan.Tasks {
		existing, ok := prior[task.ID]
		if !ok {
			merged.Tasks = append(merged.Tasks, models.NewProgressTask(task))
			continue
		}

		// Adopt the new structure, keep the execution state.
		existing.DesignatedAgent = task.DesignatedAgent
		existing.Description = task.Description
		existing.FilesToModify = append([]string(nil), task.FilesToModify...)
		existing.Dependencies = append([]string(nil), task.Dependencies...)
		merged.Tasks = append(merged.Tasks, existing)
	}

	return merged
}
