package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error values that all implementations return.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrDocumentNotFound indicates a document was not found by the given identifier.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrRunNotFound indicates no run-ledger row exists for the given pair.
	ErrRunNotFound = errors.New("workflow run not found")
)

// StoreError wraps persistence failures with the operation and entity that
// produced them.
type StoreError struct {
	Op       string // operation being performed, e.g. "UpdateDocument"
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.EntityID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a StoreError with context.
func NewStoreError(op, entityID string, err error) *StoreError {
	return &StoreError{Op: op, EntityID: entityID, Err: err}
}

// IsNotFound reports whether err indicates any missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrRunNotFound)
}
