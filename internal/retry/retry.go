package retry

import (
	"context"
	"fmt"
	"time"
)

// Default retry configuration
const (
	defaultMaxRetries         = 1
	defaultInitialRetryDelay  = 100 * time.Millisecond
	defaultMaxRetryDelay      = 2 * time.Second
	defaultRetryDelayMultiple = 2.0
)

// Retryable determines if an error should trigger another attempt
type Retryable func(err error) bool

type settings struct {
	maxRetries         int
	initialRetryDelay  time.Duration
	maxRetryDelay      time.Duration
	retryDelayMultiple float64
	retryable          Retryable
}

// Option configures Do
type Option func(*settings)

// WithMaxRetries sets the maximum number of retry attempts
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithInitialRetryDelay sets the initial delay before the first retry
func WithInitialRetryDelay(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.initialRetryDelay = d
		}
	}
}

// WithMaxRetryDelay sets the maximum delay between retries
func WithMaxRetryDelay(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.maxRetryDelay = d
		}
	}
}

// WithRetryDelayMultiple sets the exponential backoff multiplier
func WithRetryDelayMultiple(multiplier float64) Option {
	return func(s *settings) {
		if multiplier > 1.0 {
			s.retryDelayMultiple = multiplier
		}
	}
}

// WithRetryable sets the function deciding which errors are transient
func WithRetryable(fn Retryable) Option {
	return func(s *settings) {
		if fn != nil {
			s.retryable = fn
		}
	}
}

// AlwaysRetry treats every error as transient
func AlwaysRetry(error) bool { return true }

// Do runs fn, retrying transient failures with exponential backoff.
// The last error is returned once attempts are exhausted or ctx is done.
func Do(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	s := settings{
		maxRetries:         defaultMaxRetries,
		initialRetryDelay:  defaultInitialRetryDelay,
		maxRetryDelay:      defaultMaxRetryDelay,
		retryDelayMultiple: defaultRetryDelayMultiple,
		retryable:          AlwaysRetry,
	}
	for _, opt := range opts {
		opt(&s)
	}

	var lastErr error
	delay := s.initialRetryDelay

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			// Wait before retry (exponential backoff)
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled after %d attempts: %w", attempt, lastErr)
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * s.retryDelayMultiple)
				if delay > s.maxRetryDelay {
					delay = s.maxRetryDelay
				}
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !s.retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", s.maxRetries, lastErr)
}
