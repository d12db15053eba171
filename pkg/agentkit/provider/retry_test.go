package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusError struct {
	status int
}

func (e *statusError) Error() string { return "provider error" }

func statusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}

	return 0
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		Multiplier:      1.5,
		RetryableStatus: []int{429, 500, 503, 504},
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0

	err := fastPolicy().Retry(context.Background(), statusOf, func() error {
		attempts++
		if attempts < 3 {
			return &statusError{status: 503}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0

	err := fastPolicy().Retry(context.Background(), statusOf, func() error {
		attempts++
		return &statusError{status: 429}
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryableStatusIsPermanent(t *testing.T) {
	attempts := 0

	err := fastPolicy().Retry(context.Background(), statusOf, func() error {
		attempts++
		return &statusError{status: 401}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_UnknownErrorIsPermanent(t *testing.T) {
	attempts := 0

	err := fastPolicy().Retry(context.Background(), statusOf, func() error {
		attempts++
		return errors.New("connection reset")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialInterval)
	assert.Equal(t, float64(7), p.Multiplier)
	assert.ElementsMatch(t, []int{429, 500, 503, 504}, p.RetryableStatus)
}
