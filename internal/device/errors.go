package device

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist, or
	// exists with the wrong type for a type-specific operation.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidInput is returned when a request value fails validation.
	ErrInvalidInput = errors.New("device: invalid input")

	// ErrStorage wraps unexpected persistence failures.
	ErrStorage = errors.New("device: storage failure")
)

// InputError is an ErrInvalidInput carrying the message shown to clients.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrInvalidInput) match.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

func oneOf(field string, allowed []string) error {
	return invalidInput("Invalid %s. Must be one of: %s", field, strings.Join(allowed, ", "))
}

// StorageError is a persistence failure. It matches both ErrStorage and the
// underlying driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes ErrStorage and the cause to errors.Is and errors.As.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
