package apperrors

import (
	"errors"
	"fmt"
)

// RetryableError marks a failure that may succeed on redelivery (database blips, NATS hiccups).
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryable wraps err as a RetryableError with a formatted message prefix.
func NewRetryable(err error, message string, args ...interface{}) error {
	allArgs := append(args, err)
	return &RetryableError{Err: fmt.Errorf(message+": %w", allArgs...)}
}

// FatalError marks a failure that redelivery will not fix (malformed payloads, missing user).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatal wraps err as a FatalError with a formatted message prefix.
func NewFatal(err error, message string, args ...interface{}) error {
	allArgs := append(args, err)
	return &FatalError{Err: fmt.Errorf(message+": %w", allArgs...)}
}

var (
	// ErrNotFound indicates the callback (or other resource) does not exist for the caller.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates a payload failed struct validation.
	ErrValidation = errors.New("validation failed")
	// ErrDatabase indicates a general database interaction error.
	ErrDatabase = errors.New("database error")
	// ErrNATS indicates a general NATS communication error.
	ErrNATS = errors.New("nats communication error")
	// ErrUnauthorized indicates the request carried no agent identity.
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate resource")
	// ErrConflict indicates a conflicting concurrent state change.
	ErrConflict = errors.New("resource conflict")
	// ErrBadRequest indicates a malformed request, such as an unknown board bucket.
	ErrBadRequest = errors.New("bad request")
	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timeout")
)

// IsRetryable checks if the error is a RetryableError or wraps one.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsFatal checks if the error is a FatalError or wraps one.
func IsFatal(err error) bool {
	var target *FatalError
	return errors.As(err, &target)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsNATSError(err error) bool {
	return errors.Is(err, ErrNATS)
}

func IsUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsBadRequestError(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Kind returns a short, stable label for the error category. It is used as a
// metric label and to pick HTTP status codes.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsValidationError(err):
		return "validation"
	case IsBadRequestError(err):
		return "bad_request"
	case IsNotFoundError(err):
		return "not_found"
	case IsDuplicateError(err):
		return "duplicate"
	case IsConflictError(err):
		return "conflict"
	case IsUnauthorizedError(err):
		return "unauthorized"
	case IsTimeoutError(err):
		return "timeout"
	case IsNATSError(err):
		return "nats"
	case IsDatabaseError(err):
		return "database"
	default:
		return "internal"
	}
}
