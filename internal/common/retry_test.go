package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subhound/subhound/internal/service"
)

func fastRetryOptions(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return nil
	}, fastRetryOptions(3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: ErrAIUnavailable, Retryable: true}
		}
		return nil
	}, fastRetryOptions(3))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return &RetryableError{Err: ErrAIUnavailable, Retryable: true}
	}, fastRetryOptions(2))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 2, calls)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return &RetryableError{Err: ErrMalformedResponse, Retryable: false}
	}, fastRetryOptions(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error {
		return &RetryableError{Err: ErrAIUnavailable, Retryable: true}
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Minute})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryableErrorUnwrap(t *testing.T) {
	wrapped := &RetryableError{Err: ErrAIUnavailable, Retryable: true}
	assert.ErrorIs(t, wrapped, ErrAIUnavailable)
	assert.Equal(t, ErrAIUnavailable.Error(), wrapped.Error())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "rate limit", err: ErrRateLimit, want: true},
		{name: "backend unreachable", err: ErrAIUnavailable, want: true},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "malformed response", err: ErrMalformedResponse, want: false},
		{name: "wrapped malformed", err: errors.Join(ErrMalformedResponse, errors.New("detail")), want: false},
		{name: "not found", err: ErrNotFound, want: false},
		{name: "retryable wrapper", err: &RetryableError{Err: errors.New("x"), Retryable: true}, want: true},
		{name: "non-retryable wrapper", err: &RetryableError{Err: errors.New("x"), Retryable: false}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
