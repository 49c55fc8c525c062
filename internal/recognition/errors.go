// Package recognition wraps the remote recognition service: an HTTP client,
// an error taxonomy distinguishing retryable from fatal failures, and a
// dispatcher that adds caching and retry with linear backoff.
package recognition

import (
	"errors"
	"fmt"
)

// Code identifies a stable error category for a failed recognition call
type Code string

const (
	// Retryable: transient conditions worth another attempt.
	CodeRateLimited Code = "rate_limited"
	CodeServerError Code = "server_error"
	CodeNetwork     Code = "network_error"

	// Fatal: retrying cannot help.
	CodeBadRequest      Code = "bad_request"
	CodeModelNotFound   Code = "model_not_found"
	CodeModelNotRunning Code = "model_not_running"
	CodeAccessDenied    Code = "access_denied"
	CodeLimitExceeded   Code = "limit_exceeded"
)

// Error is a classified failure from the recognition service
type Error struct {
	Code    Code
	Status  int // HTTP status, 0 for transport failures
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("recognition: %s (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("recognition: %s: %s", e.Code, e.Message)
}

// Retryable reports whether another attempt could succeed
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeRateLimited, CodeServerError, CodeNetwork:
		return true
	}
	return false
}

// Category returns a one-line human-readable description for the status
// surface.
func (e *Error) Category() string {
	switch e.Code {
	case CodeRateLimited:
		return "service is rate limiting requests"
	case CodeServerError:
		return "service reported an internal error"
	case CodeNetwork:
		return "could not reach the recognition service"
	case CodeBadRequest:
		return "frame was rejected as invalid input"
	case CodeModelNotFound:
		return "recognition model is not deployed"
	case CodeModelNotRunning:
		return "recognition model is not running"
	case CodeAccessDenied:
		return "access to the recognition service was denied"
	case CodeLimitExceeded:
		return "service quota has been exceeded"
	}
	return "recognition call failed"
}

// IsRetryable reports whether err is a classified retryable failure
func IsRetryable(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Retryable()
}

// IsRateLimited reports whether err is a rate-limit rejection. The scan loop
// uses this to apply a cooldown before re-arming, independent of the
// dispatcher's own retry loop.
func IsRateLimited(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == CodeRateLimited
}
