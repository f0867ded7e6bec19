// Package store is the durable, concurrency-safe home for a session's
// plan and progress documents. One directory per session holds both
// documents as JSON; every read-modify-write is serialized through a
// per-session lock.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stagehand-dev/stagehand/internal/graph"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

const (
	planFileName     = "plan.json"
	progressFileName = "progress.json"
)

// Store persists plan/progress documents under root/sessions/<id>/.
type Store struct {
	root  string
	locks *lockTable
	// now is replaceable in tests.
	now func() time.Time
}

// New creates a store rooted at the given data directory. The
// directory is created on first write.
func New(root string) *Store {
	return &Store{
		root:  root,
		locks: newLockTable(),
		now:   time.Now,
	}
}

// DefaultRoot returns the XDG data path for stagehand state.
func DefaultRoot() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "stagehand")
}

// sessionDir returns the directory holding a session's documents.
func (s *Store) sessionDir(sessionID string) string {
	return filepath.Join(s.root, "sessions", sessionID)
}

// TransitionFields carries the state-specific fields applied on a
// transition. Only the fields relevant to the target state are read.
type TransitionFields struct {
	// AgentSessionID is recorded when entering in_progress.
	AgentSessionID string
	// FilesModified is recorded when entering completed.
	FilesModified []string
	// Summary is recorded when entering completed or failed.
	Summary string
	// SelfHeal, when non-nil on a failed -> in_progress edge, appends
	// exactly one history entry and increments the attempt counter
	// atomically with the transition.
	SelfHeal *models.SelfHealAttempt
	// ResetStartedAt forces StartedAt to be overwritten on retry.
	// By default StartedAt is set once and kept.
	ResetStartedAt bool
}

// validatePlan rejects malformed plans before any persistence.
func validatePlan(plan *models.PlanDocument) error {
	if strings.TrimSpace(plan.TaskDescription) == "" {
		return fmt.Errorf("%w: task_description is required", ErrValidation)
	}
	if strings.TrimSpace(plan.Synopsis) == "" {
		return fmt.Errorf("%w: synopsis is required", ErrValidation)
	}
	if len(plan.Tasks) == 0 {
		return fmt.Errorf("%w: plan has no tasks", ErrValidation)
	}
	for i, t := range plan.Tasks {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("%w: task %d has no id", ErrValidation, i)
		}
		if strings.TrimSpace(t.DesignatedAgent) == "" {
			return fmt.Errorf("%w: task %s has no designated_agent", ErrValidation, t.ID)
		}
		if strings.TrimSpace(t.Description) == "" {
			return fmt.Errorf("%w: task %s has no description", ErrValidation, t.ID)
		}
	}

	// Dependency resolution and cycle detection.
	if _, err := graph.Build(plan.Tasks); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// CreateOrUpdatePlan validates the plan and persists it for the
// session. A new session gets fresh documents with every task pending.
// An existing session keeps its execution history: the stored plan is
// replaced, and the progress document is merged via Reconcile.
//
// If sessionID is empty a new one is generated. Returns the session ID
// together with the stored documents.
func (s *Store) CreateOrUpdatePlan(sessionID string, plan *models.PlanDocument) (string, *models.PlanDocument, *models.ProgressDocument, error) {
	if err := validatePlan(plan); err != nil {
		return "", nil, nil, err
	}

	if sessionID == "" {
		sessionID = uuid.New().String()[:8]
	}

	lk := s.locks.get(sessionID)
	lk.Lock()
	defer lk.Unlock()

	now := s.now().UTC()

	stored := *plan
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}

	var progress *models.ProgressDocument
	existing, err := s.readProgress(sessionID)
	switch {
	case err == nil:
		progress = Reconcile(existing, &stored, now)
	case errors.Is(err, ErrSessionNotFound):
		progress = &models.ProgressDocument{
			PlanFileRef: planFileName,
			CreatedAt:   now,
			LastUpdated: now,
			RevisionTag: stored.RevisionTag,
			Tasks:       make([]models.ProgressTask, 0, len(stored.Tasks)),
		}
		for _, t := range stored.Tasks {
			progress.Tasks = append(progress.Tasks, models.NewProgressTask(t))
		}
	default:
		return "", nil, nil, err
	}

	if err := s.writePlan(sessionID, &stored); err != nil {
		return "", nil, nil, err
	}
	if err := s.writeProgress(sessionID, progress); err != nil {
		return "", nil, nil, err
	}

	return sessionID, &stored, progress, nil
}

// Transition applies one task-state edge under the session lock.
// Illegal and duplicate edges fail with *TransitionError and leave the
// stored document untouched; racing callers for the same edge get
// exactly one success.
func (s *Store) Transition(sessionID, taskID string, newState models.TaskState, fields TransitionFields) (*models.ProgressTask, error) {
	if !newState.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", ErrIllegalTransition, newState)
	}

	lk := s.locks.get(sessionID)
	lk.Lock()
	defer lk.Unlock()

	progress, err := s.readProgress(sessionID)
	if err != nil {
		return nil, err
	}

	task := progress.TaskByID(taskID)
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}

	if !task.State.CanTransition(newState) {
		return nil, &TransitionError{TaskID: taskID, From: task.State, To: newState}
	}

	now := s.now().UTC()

	switch newState {
	case models.TaskStateInProgress:
		if task.StartedAt == nil || fields.ResetStartedAt {
			started := now
			task.StartedAt = &started
		}
		task.AgentSessionID = fields.AgentSessionID
		if fields.SelfHeal != nil {
			attempt := *fields.SelfHeal
			task.SelfHealAttempts++
			attempt.Attempt = task.SelfHealAttempts
			if attempt.Timestamp.IsZero() {
				attempt.Timestamp = now
			}
			task.SelfHealHistory = append(task.SelfHealHistory, attempt)
		}
	case models.TaskStateCompleted:
		completed := now
		task.CompletedAt = &completed
		task.FilesModified = fields.FilesModified
		task.Summary = fields.Summary
	case models.TaskStateFailed:
		failed := now
		task.FailedAt = &failed
		task.Summary = fields.Summary
	}

	task.State = newState
	progress.LastUpdated = now

	if err := s.writeProgress(sessionID, progress); err != nil {
		return nil, err
	}

	result := *task
	return &result, nil
}

// RecordSelfHealOutcome sets the Result on the most recent self-heal
// history entry. No-op if the task has no history.
func (s *Store) RecordSelfHealOutcome(sessionID, taskID, result string) error {
	lk := s.locks.get(sessionID)
	lk.Lock()
	defer lk.Unlock()

	progress, err := s.readProgress(sessionID)
	if err != nil {
		return err
	}

	task := progress.TaskByID(taskID)
	if task == nil {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	if len(task.SelfHealHistory) == 0 {
		return nil
	}

	task.SelfHealHistory[len(task.SelfHealHistory)-1].Result = result
	progress.LastUpdated = s.now().UTC()

	return s.writeProgress(sessionID, progress)
}

// Get returns the stored plan and progress documents for a session.
func (s *Store) Get(sessionID string) (*models.PlanDocument, *models.ProgressDocument, error) {
	lk := s.locks.get(sessionID)
	lk.Lock()
	defer lk.Unlock()

	plan, err := s.readPlan(sessionID)
	if err != nil {
		return nil, nil, err
	}
	progress, err := s.readProgress(sessionID)
	if err != nil {
		return nil, nil, err
	}
	return plan, progress, nil
}

// FailedTasks returns the session's tasks currently in the failed
// state, in declaration order.
func (s *Store) FailedTasks(sessionID string) ([]models.ProgressTask, error) {
	_, progress, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return progress.Failed(), nil
}

// InProgressTask returns the task currently in_progress, or nil. The
// engine uses this to restore the at-most-one-running invariant after
// a crashed run.
func (s *Store) InProgressTask(sessionID string) (*models.ProgressTask, error) {
	_, progress, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return progress.InProgress(), nil
}

// Sessions lists the IDs of all stored sessions, sorted.
func (s *Store) Sessions() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "sessions"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// readPlan loads the plan document. Missing session maps to
// ErrSessionNotFound.
func (s *Store) readPlan(sessionID string) (*models.PlanDocument, error) {
	data, err := os.ReadFile(filepath.Join(s.sessionDir(sessionID), planFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("read plan for session %s: %w", sessionID, err)
	}

	var plan models.PlanDocument
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("decode plan for session %s: %w", sessionID, err)
	}
	return &plan, nil
}

// readProgress loads the progress document. Missing session maps to
// ErrSessionNotFound.
func (s *Store) readProgress(sessionID string) (*models.ProgressDocument, error) {
	data, err := os.ReadFile(filepath.Join(s.sessionDir(sessionID), progressFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("read progress for session %s: %w", sessionID, err)
	}

	var progress models.ProgressDocument
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("decode progress for session %s: %w", sessionID, err)
	}
	return &progress, nil
}

func (s *Store) writePlan(sessionID string, plan *models.PlanDocument) error {
	return s.writeDoc(sessionID, planFileName, plan)
}

func (s *Store) writeProgress(sessionID string, progress *models.ProgressDocument) error {
	return s.writeDoc(sessionID, progressFileName, progress)
}

// writeDoc writes a document atomically: temp file in the session
// directory, then rename over the target.
func (s *Store) writeDoc(sessionID, name string, doc any) error {
	dir := s.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
