package providers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"
)

// RetryPolicy defines retry behavior for transient transport failures.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (1 means no retry).
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the starting backoff duration.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay caps the backoff.
	MaxDelay time.Duration `yaml:"max_delay"`

	// Multiplier is the backoff multiplier (default 2.0).
	Multiplier float64 `yaml:"multiplier"`

	// JitterPercent is the jitter fraction (default 0.1 for ±10%).
	JitterPercent float64 `yaml:"jitter_percent"`
}

// DefaultRetryPolicy returns the default transport retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		JitterPercent: 0.1,
	}
}

// Delay computes the backoff before the given retry attempt (0-based),
// with exponential growth, a cap, and jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	factor := math.Pow(multiplier, float64(attempt))
	delay := time.Duration(float64(p.InitialDelay) * factor)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return addJitter(delay, p.JitterPercent)
}

// addJitter applies ±jitterPercent random jitter to prevent thundering
// herd, never returning less than a millisecond.
func addJitter(delay time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 {
		return delay
	}
	jitterRange := float64(delay) * jitterPercent
	offset := (rand.Float64()*2 - 1) * jitterRange
	jittered := time.Duration(float64(delay) + offset)
	if jittered < time.Millisecond {
		return time.Millisecond
	}
	return jittered
}

// retryTransport wraps a transport with retry-on-transient behavior. The
// scheduler above only ever sees the final outcome.
type retryTransport struct {
	inner  Transport
	policy RetryPolicy
	logger *slog.Logger
}

// WithRetry wraps a transport with the given retry policy.
func WithRetry(inner Transport, policy RetryPolicy, logger *slog.Logger) Transport {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &retryTransport{inner: inner, policy: policy, logger: logger}
}

func (t *retryTransport) Name() string {
	return t.inner.Name()
}

func (t *retryTransport) Request(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < t.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := t.wait(ctx, t.policy.Delay(attempt-1)); err != nil {
				return "", err
			}
			t.logger.Debug("retrying arbitration request",
				"provider", t.inner.Name(), "attempt", attempt+1)
		}

		resp, err := t.inner.Request(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

func (t *retryTransport) wait(ctx context.Context, delay time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// isRetryable classifies transport errors. Context cancellation is never
// retried; rate limits, timeouts, and 5xx responses are.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate", "timeout", "deadline", "connection", "unavailable", "500", "502", "503", "529", "overloaded"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
