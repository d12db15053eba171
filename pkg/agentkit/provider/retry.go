package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy governs retries of transient model-call failures.
// Only HTTP statuses listed in RetryableStatus are retried; everything
// else fails immediately.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	RetryableStatus []int
}

// DefaultRetryPolicy retries up to 5 attempts with exponential backoff
// starting at 1s and growing by a factor of 7 (1s, 7s, 49s, ...), on
// HTTP 429/500/503/504.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		Multiplier:      7,
		RetryableStatus: []int{429, 500, 503, 504},
	}
}

func (p RetryPolicy) retryable(status int) bool {
	for _, s := range p.RetryableStatus {
		if s == status {
			return true
		}
	}

	return false
}

// Retry runs fn under the policy. statusOf extracts the HTTP status
// carried by a provider error; a status of 0 (unknown) is permanent.
func (p RetryPolicy) Retry(ctx context.Context, statusOf func(error) int, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0

	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}

		if !p.retryable(statusOf(err)) {
			return backoff.Permanent(err)
		}

		return err
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
}
