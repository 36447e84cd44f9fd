package git

import (
	"context"
	"time"
)

// RetryConfig bounds retries of a remote operation.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (default: 3).
	MaxAttempts int
	// InitialDelay is the delay before the first retry (default: 2s).
	InitialDelay time.Duration
	// MaxDelay caps the delay (default: 30s).
	MaxDelay time.Duration
	// Multiplier grows the delay after each retry (default: 2.0).
	Multiplier float64
}

// DefaultRetryConfig returns the retry configuration used for gh calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryOperation is one retryable unit of work.
type RetryOperation[R any] struct {
	// Attempt performs one attempt. attempt is 1-based.
	Attempt func(ctx context.Context, attempt int) (R, error)

	// ShouldRetry decides whether err is worth another attempt. Nil never retries.
	ShouldRetry func(err error) bool

	// OnRetryWait is called before each wait. Optional.
	OnRetryWait func(attempt int, delay time.Duration)
}

// ExecuteWithRetry runs op until it succeeds, ShouldRetry refuses or
// MaxAttempts is reached. It returns the last result, the number of attempts
// and the last error.
func ExecuteWithRetry[R any](ctx context.Context, config RetryConfig, op RetryOperation[R]) (result R, attempts int, err error) {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		attempts = attempt

		result, err = op.Attempt(ctx, attempt)
		if err == nil {
			return result, attempts, nil
		}
		if op.ShouldRetry == nil || !op.ShouldRetry(err) || attempt == config.MaxAttempts {
			break
		}

		if op.OnRetryWait != nil {
			op.OnRetryWait(attempt, delay)
		}
		select {
		case <-ctx.Done():
			return result, attempts, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}
	return result, attempts, err
}
