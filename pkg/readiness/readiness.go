// Package readiness polls a caller-supplied probe under a bounded attempt budget with an
// escalating delay between attempts.
//
// The package has no notion of what "ready" means. Callers decide that in their [Probe]: a
// container reporting the "running" status, a database accepting a connection, and so on.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultAttempts is the number of probe invocations made by [DefaultPolicy].
	DefaultAttempts = 10
)

// ErrTimeout is matched by every [*TimeoutError].
var ErrTimeout = errors.New("readiness timeout")

// Probe reports whether a resource is ready. A nil error means ready, any other error is treated
// as transient and the probe is retried until the attempt budget runs out.
type Probe func(ctx context.Context) error

// DelayFunc returns how long to wait after the given failed attempt. Attempts are numbered from 1.
type DelayFunc func(attempt int) time.Duration

// Policy bounds a [Poll] call.
type Policy struct {
	// Attempts is the maximum number of probe invocations. Must be positive.
	Attempts int
	// Delay is the wait after a failed attempt, before the next one. It is never called after the
	// final attempt. Defaults to [LinearDelay] when nil.
	Delay DelayFunc
}

// DefaultPolicy returns 10 attempts separated by 1s, 2s, ..., 9s.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: DefaultAttempts,
		Delay:    LinearDelay,
	}
}

// LinearDelay waits attempt seconds after the given attempt.
func LinearDelay(attempt int) time.Duration {
	return time.Duration(attempt) * time.Second
}

// TimeoutError is returned by [Poll] when every attempt failed.
type TimeoutError struct {
	// Attempts is the number of probe invocations made.
	Attempts int
	// Err is the error returned by the final attempt.
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("not ready after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Poll runs probe until it succeeds or policy.Attempts invocations have failed.
//
// On success it returns nil immediately, without any further delay. When the budget is exhausted
// it returns a [*TimeoutError] carrying the last probe error. Waiting between attempts blocks the
// caller, but honors ctx cancellation.
func Poll(ctx context.Context, policy Policy, probe Probe) error {
	if probe == nil {
		return errors.New("probe must not be nil")
	}
	if policy.Attempts <= 0 {
		return fmt.Errorf("attempts must be positive: %d", policy.Attempts)
	}
	delay := policy.Delay
	if delay == nil {
		delay = LinearDelay
	}

	var attempt int
	backoff := retry.WithMaxRetries(uint64(policy.Attempts-1), retry.BackoffFunc(func() (time.Duration, bool) {
		return delay(attempt), false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := probe(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return fmt.Errorf("readiness canceled after %d attempts: %w", attempt, err)
	}
	return &TimeoutError{Attempts: attempt, Err: err}
}
