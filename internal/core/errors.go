package core

import (
	"errors"
	"fmt"
)

// FailureKind distinguishes storage failures the app can survive from those it cannot.
type FailureKind int

const (
	// FailureOpen means the store could not be opened or migrated. Fatal.
	FailureOpen FailureKind = iota + 1
	// FailureOperation means a single read or write failed. Recoverable.
	FailureOperation
)

func (k FailureKind) String() string {
	switch k {
	case FailureOpen:
		return "open"
	case FailureOperation:
		return "operation"
	default:
		return "unknown"
	}
}

// StorageFailure wraps an error coming out of the storage engine.
type StorageFailure struct {
	Kind FailureKind
	Op   string
	Err  error
}

func NewOpenFailure(op string, err error) *StorageFailure {
	return &StorageFailure{Kind: FailureOpen, Op: op, Err: err}
}

func NewOperationFailure(op string, err error) *StorageFailure {
	return &StorageFailure{Kind: FailureOperation, Op: op, Err: err}
}

func (e *StorageFailure) Error() string {
	return fmt.Sprintf("storage %s failure: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *StorageFailure) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries an open failure.
func IsFatal(err error) bool {
	var sf *StorageFailure
	return errors.As(err, &sf) && sf.Kind == FailureOpen
}

// IsStorageFailure reports whether err carries any storage failure.
func IsStorageFailure(err error) bool {
	var sf *StorageFailure
	return errors.As(err, &sf)
}
