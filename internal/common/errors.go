// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound = errors.New("not found")

	// AI backend errors.
	ErrAIUnavailable      = errors.New("ai backend unreachable")
	ErrMalformedResponse  = errors.New("malformed ai response")
	ErrToolBudgetExceeded = errors.New("tool call budget exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
// Malformed AI responses are never retryable: resending the same prompt
// to a backend that answered garbage only burns quota.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrAIUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
