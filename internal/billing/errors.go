package billing

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrDocumentLocked     = errors.New("document locked")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPartialComputation = errors.New("partial computation failure")
)

// ValidationError reports malformed input. It is surfaced to the caller as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DocumentLockedError rejects an edit or transition on a status that no longer allows it.
type DocumentLockedError struct {
	Kind   DocumentKind
	ID     int64
	Status string
	Op     string
}

func (e *DocumentLockedError) Error() string {
	return fmt.Sprintf("%s %d is locked: cannot %s in status %s", e.Kind, e.ID, e.Op, e.Status)
}

func (e *DocumentLockedError) Is(target error) bool {
	return target == ErrDocumentLocked
}

// TransitionError is an illegal move between two non-terminal states.
type TransitionError struct {
	Kind DocumentKind
	ID   int64
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %d: cannot move from %s to %s", e.Kind, e.ID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PartialComputationFailure marks one entity in a batch whose lookup failed. The batch
// carries on with zeroed metrics for it.
type PartialComputationFailure struct {
	ProjectID int64
	Err       error
}

func (e *PartialComputationFailure) Error() string {
	return fmt.Sprintf("project %d: %v", e.ProjectID, e.Err)
}

func (e *PartialComputationFailure) Unwrap() error {
	return e.Err
}

func (e *PartialComputationFailure) Is(target error) bool {
	return target == ErrPartialComputation
}
