// Package common holds the errors, retry policy, logging setup and clock shared by
// every hearth component.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEntry is returned when a unique key is already taken.
	ErrDuplicateEntry = errors.New("duplicate entry")

	ErrNoRows          = errors.New("no rows to import")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrMissingColumn   = errors.New("missing required column")

	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFeedConnection means a bank feed could not be reached at all.
	ErrFeedConnection = errors.New("bank feed connection failed")
	// ErrAccessRevoked means the feed rejected our credentials and a person has to
	// reconnect the institution.
	ErrAccessRevoked = errors.New("bank feed access revoked")
	// ErrRateLimit makes WithRetry wait the maximum delay before the next attempt.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Transient marks err as worth another attempt.
func Transient(err error) error {
	return &RetryableError{Err: err, Retryable: true}
}

// Permanent marks err as final so WithRetry returns it immediately.
func Permanent(err error) error {
	return &RetryableError{Err: err, Retryable: false}
}

// Permanentf formats a permanent error.
func Permanentf(format string, args ...any) error {
	return Permanent(fmt.Errorf(format, args...))
}

// IsRetryable reports whether WithRetry would try err again. Errors that carry no
// RetryableError are retried.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return err != nil
}
