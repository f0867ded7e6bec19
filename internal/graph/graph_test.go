package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

func TestBuildSimple(t *testing.T) {
	tasks := []models.Task{
		{ID: "task-1", Description: "Task 1"},
		{ID: "task-2", Description: "Task 2"},
		{ID: "task-3", Description: "Task 3"},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("expected size 3, got %d", g.Size())
	}
}

func TestBuildWithDependencies(t *testing.T) {
	tasks := []models.Task{
		{ID: "task-1"},
		{ID: "task-2", Dependencies: []string{"task-1"}},
		{ID: "task-3", Dependencies: []string{"task-1", "task-2"}},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := g.Dependencies("task-3")
	if len(deps) != 2 {
		t.Errorf("expected 2 dependencies for task-3, got %d", len(deps))
	}
}

func TestBuildDuplicateID(t *testing.T) {
	tasks := []models.Task{
		{ID: "task-1"},
		{ID: "task-1"},
	}

	_, err := Build(tasks)
	if !errors.Is(err, ErrDuplicateTask) {
		t.Errorf("expected ErrDuplicateTask, got %v", err)
	}
}

func TestBuildUnknownDependency(t *testing.T) {
	tasks := []models.Task{
		{ID: "task-1", Dependencies: []string{"unknown-task"}},
	}

	_, err := Build(tasks)
	if !errors.Is(err, ErrUnknownDependency) {
		t.Errorf("expected ErrUnknownDependency, got %v", err)
	}
}

func TestCycleDetectionSimple(t *testing.T) {
	// A -> B -> A (direct cycle)
	tasks := []models.Task{
		{ID: "A", Dependencies: []string{"B"}},
		{ID: "B", Dependencies: []string{"A"}},
	}

	_, err := Build(tasks)
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if cycleErr.TaskID != "A" && cycleErr.TaskID != "B" {
		t.Errorf("expected cycle member A or B, got %q", cycleErr.TaskID)
	}
}

func TestCycleDetectionThreeNodes(t *testing.T) {
	// A -> B -> C -> A
	tasks := []models.Task{
		{ID: "A", Dependencies: []string{"B"}},
		{ID: "B", Dependencies: []string{"C"}},
		{ID: "C", Dependencies: []string{"A"}},
	}

	_, err := Build(tasks)
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected for A->B->C->A cycle, got %v", err)
	}
}

func TestCycleDetectionSelfLoop(t *testing.T) {
	tasks := []models.Task{
		{ID: "A", Dependencies: []string{"A"}},
	}

	_, err := Build(tasks)
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected for self-loop, got %v", err)
	}
}

func TestNoCycleLinear(t *testing.T) {
	tasks := []models.Task{
		{ID: "A"},
		{ID: "B", Dependencies: []string{"A"}},
		{ID: "C", Dependencies: []string{"B"}},
	}

	if _, err := Build(tasks); err != nil {
		t.Fatalf("unexpected error for acyclic graph: %v", err)
	}
}

func TestExecutionOrderLinear(t *testing.T) {
	tasks := []models.Task{
		{ID: "A"},
		{ID: "B", Dependencies: []string{"A"}},
		{ID: "C", Dependencies: []string{"B"}},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.ExecutionOrder()
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestExecutionOrderDeclarationOrderTies(t *testing.T) {
	// T1 first, then T2 and T3 in declaration order even though they
	// are independent of each other.
	tasks := []models.Task{
		{ID: "T1"},
		{ID: "T2", Dependencies: []string{"T1"}},
		{ID: "T3", Dependencies: []string{"T1"}},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.ExecutionOrder()
	want := []string{"T1", "T2", "T3"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestExecutionOrderTiesIgnoreIDSort(t *testing.T) {
	// Declaration order wins over lexicographic ID order.
	tasks := []models.Task{
		{ID: "zeta"},
		{ID: "alpha"},
		{ID: "mid", Dependencies: []string{"zeta", "alpha"}},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.ExecutionOrder()
	want := []string{"zeta", "alpha", "mid"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestExecutionOrderDiamond(t *testing.T) {
	// A -> B, A -> C, B+C -> D
	tasks := []models.Task{
		{ID: "A"},
		{ID: "B", Dependencies: []string{"A"}},
		{ID: "C", Dependencies: []string{"A"}},
		{ID: "D", Dependencies: []string{"B", "C"}},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.ExecutionOrder()
	want := []string{"A", "B", "C", "D"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestExecutionOrderLateDependency(t *testing.T) {
	// A task declared early but depending on a later task must wait
	// for its dependency.
	tasks := []models.Task{
		{ID: "late", Dependencies: []string{"first"}},
		{ID: "first"},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.ExecutionOrder()
	want := []string{"first", "late"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestExecutionOrderDeterministic(t *testing.T) {
	tasks := []models.Task{
		{ID: "A"},
		{ID: "B"},
		{ID: "C", Dependencies: []string{"A", "B"}},
		{ID: "D", Dependencies: []string{"B"}},
		{ID: "E", Dependencies: []string{"C", "D"}},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := g.ExecutionOrder()
	for i := 0; i < 10; i++ {
		if got := g.ExecutionOrder(); !reflect.DeepEqual(got, first) {
			t.Fatalf("order not deterministic: %v vs %v", got, first)
		}
	}
}

func TestEmptyGraph(t *testing.T) {
	g, err := Build(nil)
	if err != nil {
		t.Fatalf("unexpected error building empty graph: %v", err)
	}

	if order := g.ExecutionOrder(); len(order) != 0 {
		t.Errorf("expected empty order, got %v", order)
	}
}

func TestTaskLookup(t *testing.T) {
	tasks := []models.Task{
		{ID: "task-1", Description: "Task 1"},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := g.Task("task-1")
	if !ok || got.Description != "Task 1" {
		t.Errorf("expected task-1, got %+v ok=%v", got, ok)
	}

	if _, ok := g.Task("missing"); ok {
		t.Error("expected lookup miss for unknown task")
	}
}

func TestComplexDependencies(t *testing.T) {
	//       A
	//      / \
	//     B   C
	//    / \ / \
	//   D   E   F
	//    \  |  /
	//       G
	tasks := []models.Task{
		{ID: "A"},
		{ID: "B", Dependencies: []string{"A"}},
		{ID: "C", Dependencies: []string{"A"}},
		{ID: "D", Dependencies: []string{"B"}},
		{ID: "E", Dependencies: []string{"B", "C"}},
		{ID: "F", Dependencies: []string{"C"}},
		{ID: "G", Dependencies: []string{"D", "E", "F"}},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.ExecutionOrder()
	positions := make(map[string]int)
	for i, id := range order {
		positions[id] = i
	}

	constraints := []struct {
		before, after string
	}{
		{"A", "B"}, {"A", "C"},
		{"B", "D"}, {"B", "E"},
		{"C", "E"}, {"C", "F"},
		{"D", "G"}, {"E", "G"}, {"F", "G"},
	}

	for _, c := range constraints {
		if positions[c.before] >= positions[c.after] {
			t.Errorf("%s should come before %s in %v", c.before, c.after, order)
		}
	}
}
