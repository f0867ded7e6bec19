// Package graph validates a plan's task set and produces the
// deterministic execution order for the run loop.
package graph

import (
	"errors"
	"fmt"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrUnknownDependency indicates a task depends on an ID not present in the plan.
var ErrUnknownDependency = errors.New("unknown dependency")

// ErrDuplicateTask indicates two tasks in the plan share an ID.
var ErrDuplicateTask = errors.New("duplicate task id")

// CycleError reports a circular dependency, naming at least one task
// on the cycle.
type CycleError struct {
	// TaskID is a task known to be on the cycle.
	TaskID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected at task %s", e.TaskID)
}

// Unwrap allows errors.Is(err, ErrCycleDetected).
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// Graph is the validated dependency graph of a plan's tasks. It is
// immutable after Build and safe to rebuild on every replan.
type Graph struct {
	// order preserves the plan's declaration order of task IDs.
	order []string
	// nodes maps task ID to the task itself.
	nodes map[string]models.Task
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
}

// Build validates the task set and constructs the graph. It rejects
// duplicate IDs, dependencies on unknown IDs, and cycles. Build is
// pure: it never mutates the input and holds no external state.
func Build(tasks []models.Task) (*Graph, error) {
	g := &Graph{
		order: make([]string, 0, len(tasks)),
		nodes: make(map[string]models.Task, len(tasks)),
		edges: make(map[string][]string, len(tasks)),
	}

	for _, task := range tasks {
		if _, exists := g.nodes[task.ID]; exists {
			return nil, fmt.Errorf("task %s: %w", task.ID, ErrDuplicateTask)
		}
		g.nodes[task.ID] = task
		g.order = append(g.order, task.ID)
	}

	for _, task := range tasks {
		for _, depID := range task.Dependencies {
			if _, exists := g.nodes[depID]; !exists {
				return nil, fmt.Errorf("task %s depends on %s: %w", task.ID, depID, ErrUnknownDependency)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	if onCycle := g.findCycle(); onCycle != "" {
		return nil, &CycleError{TaskID: onCycle}
	}

	return g, nil
}

// findCycle runs a depth-first search with coloring to detect back
// edges. It returns the ID of a task on a cycle, or "" if acyclic.
// Color states: 0 = white (unvisited), 1 = gray (in current path),
// 2 = black (done).
func (g *Graph) findCycle() string {
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) string
	visit = func(id string) string {
		colors[id] = 1

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Back edge into the current path.
				return depID
			case 0:
				if onCycle := visit(depID); onCycle != "" {
					return onCycle
				}
			}
		}

		colors[id] = 2
		return ""
	}

	// Iterate in declaration order so the reported task is stable.
	for _, id := range g.order {
		if colors[id] == 0 {
			if onCycle := visit(id); onCycle != "" {
				return onCycle
			}
		}
	}

	return ""
}

// ExecutionOrder returns a deterministic total order consistent with
// the dependency partial order. Among tasks whose dependencies are all
// satisfied, ties are broken by declaration order in the plan. The
// run loop executes strictly one task at a time, so this order is the
// execution order, not a parallel schedule.
func (g *Graph) ExecutionOrder() []string {
	placed := make(map[string]bool, len(g.nodes))
	order := make([]string, 0, len(g.nodes))

	// Kahn-style: repeatedly scan the declaration order for the first
	// unplaced task with all dependencies placed. Build guarantees
	// acyclicity, so every pass places at least one task.
	for len(order) < len(g.nodes) {
		for _, id := range g.order {
			if placed[id] {
				continue
			}
			ready := true
			for _, depID := range g.edges[id] {
				if !placed[depID] {
					ready = false
					break
				}
			}
			if ready {
				placed[id] = true
				order = append(order, id)
			}
		}
	}

	return order
}

// Task returns the task for a given ID. The second result is false if
// the ID is not in the graph.
func (g *Graph) Task(id string) (models.Task, bool) {
	t, ok := g.nodes[id]
	return t, ok
}

// Dependencies returns the IDs of tasks the given task depends on.
func (g *Graph) Dependencies(id string) []string {
	return g.edges[id]
}

// Size returns the number of tasks in the graph.
func (g *Graph) Size() int {
	return len(g.nodes)
}
