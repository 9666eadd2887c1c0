package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// Sentinel errors for retry logic.
var (
	// ErrRetryable marks a transient failure.
	ErrRetryable = &ilerr.IdeaLinkError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: ilerr.ExitGeneral,
	}

	// ErrPending marks a result that is not available yet, such as a receipt
	// for a transaction that has not been mined.
	ErrPending = &ilerr.IdeaLinkError{
		Code:     "PENDING",
		Message:  "result not available yet",
		ExitCode: ilerr.ExitGeneral,
	}

	ErrRateLimited = &ilerr.IdeaLinkError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: ilerr.ExitGeneral,
	}
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (including initial); 0 means until ctx is done
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the default retry configuration.
// 4 attempts total (1 initial + 3 retries) with delays: 1s, 2s, 4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    4 * time.Second,
	}
}

// PollConfig returns a configuration suited to polling for a mined
// transaction: unbounded attempts capped at maxDelay between polls.
func PollConfig(interval, maxDelay time.Duration) RetryConfig {
	if interval <= 0 {
		interval = time.Second
	}
	if maxDelay < interval {
		maxDelay = interval
	}
	return RetryConfig{
		BaseDelay: interval,
		MaxDelay:  maxDelay,
	}
}

// Retry executes the operation with exponential backoff retry.
// Uses default configuration: 4 attempts with delays 1s, 2s, 4s.
func Retry[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	return RetryWithConfig(ctx, DefaultRetryConfig(), operation)
}

// RetryWithConfig executes the operation with the specified retry configuration.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; cfg.MaxAttempts <= 0 || attempt < cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		// Don't delay after the last attempt
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, err)
}

// calculateDelay calculates the delay for the given attempt using exponential backoff with jitter.
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := baseDelay * (1 << attempt) // 2^attempt * baseDelay
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + rand.N(half) //nolint:gosec // G404: Jitter does not require cryptographic randomness
}

// IsRetryable returns true if the error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrPending) ||
		errors.Is(err, ErrRateLimited)
}

// WrapRetryable wraps an error to mark it as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
