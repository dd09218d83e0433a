package services

import (
	"fmt"

	"github.com/huangang/consultdesk/internal/models"
)

// ValidationError is bad input to an operation; the operation did not apply.
type ValidationError = models.ValidationError

func validationError(msg string) error { return &ValidationError{Msg: msg} }

// NotFoundError reports that the referenced entity is not in the snapshot.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// AlreadyAttachedError reports a duplicate (project, consultant) engagement.
type AlreadyAttachedError struct {
	ProjectID uint
	Email     string
}

func (e *AlreadyAttachedError) Error() string {
	return fmt.Sprintf("consultant %s is already attached to project %d", e.Email, e.ProjectID)
}

// InvalidStateError reports an operation that does not apply to the
// entity's current state, e.g. paying an invoice twice.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }

// PersistenceError wraps a failure of the store. The snapshot is left
// unchanged whenever one is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
