package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")

	ErrInvalidRequest = errors.New("invalid request body")
	ErrValidation     = errors.New("validation failed")

	ErrDuplicateNumber = errors.New("phone number already registered")
	ErrNoAvailableUser = errors.New("no available user in department")
	ErrNoAvailableLine = errors.New("no available phone line")
	ErrNotACall        = errors.New("communication is not a call")
)

type DuplicateNumberError struct{ Number string }

func (e *DuplicateNumberError) Error() string {
	return fmt.Sprintf("phone number '%s' already registered", e.Number)
}

func (e *DuplicateNumberError) Is(target error) bool {
	return target == ErrDuplicateNumber || target == ErrAlreadyExists
}

// PersistenceError marks a failure of the underlying store. It is always
// propagated so callers can retry the operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
