// Package retry wraps backoff policies behind a small combinator so callers
// never hand-roll retry loops around remote calls.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bundles a backoff schedule with an attempt bound.
type Policy struct {
	initial  time.Duration
	max      time.Duration
	maxTries uint
}

// Reads is the policy for idempotent remote reads: a few quick attempts,
// then give up and let the caller degrade to cached data.
func Reads() Policy {
	return Policy{initial: 200 * time.Millisecond, max: 2 * time.Second, maxTries: 3}
}

// Replays is the policy for background remote-sync replay attempts.
func Replays() Policy {
	return Policy{initial: time.Second, max: 30 * time.Second, maxTries: 4}
}

// Do runs fn under the policy until it succeeds, returns a permanent error,
// or the context is cancelled.
func Do(ctx context.Context, p Policy, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initial
	b.MaxInterval = p.max

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.maxTries))
	return err
}

// Permanent marks an error as non-retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
