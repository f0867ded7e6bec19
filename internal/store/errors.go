package store

import (
	"errors"
	"fmt"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// ErrSessionNotFound indicates no documents exist for the session ID.
var ErrSessionNotFound = errors.New("session not found")

// ErrTaskNotFound indicates the task ID is not present in the session's
// progress document.
var ErrTaskNotFound = errors.New("task not found")

// ErrValidation indicates a malformed plan. Validation failures are
// rejected before any persistence; stored state is unchanged.
var ErrValidation = errors.New("invalid plan")

// ErrIllegalTransition indicates a state-machine edge that is not
// allowed, including duplicate transitions from racing callers.
var ErrIllegalTransition = errors.New("illegal state transition")

// TransitionError reports a rejected task-state transition. The caller
// that loses a race for the same edge receives one of these rather
// than a silently merged update.
type TransitionError struct {
	TaskID string
	From   models.TaskState
	To     models.TaskState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition for task %s: %s -> %s", e.TaskID, e.From, e.To)
}

// Unwrap allows errors.Is(err, ErrIllegalTransition).
func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}
