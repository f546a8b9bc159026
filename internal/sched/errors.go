package sched

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is returned when registering a job or action whose
	// name is already taken. The original registration is left untouched.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrNotFound is returned for lookups of unknown jobs or actions.
	ErrNotFound = errors.New("not found")

	// ErrInFlight is returned by BeginDispatch when the job's previous
	// dispatch has not completed yet. The caller records SkippedOverlap.
	ErrInFlight = errors.New("dispatch already in flight")
)

// ActionError wraps a failure raised by an action unit so callers can
// distinguish "the action ran and failed" from scheduler-side errors.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
