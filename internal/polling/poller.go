// Package polling turns a one-shot asynchronous probe into a bounded
// repeated-probe loop. It is generic over the probe result and carries no
// knowledge of runs or the Job Service.
package polling

import (
	"context"
	"time"
)

// Defaults used by the orchestrator: a 2 second interval with 150 attempts
// gives a ceiling of roughly five minutes without hammering the service.
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 150
)

// Probe is one asynchronous status check.
type Probe[T any] func(ctx context.Context) (T, error)

// Options bounds a polling loop.
type Options struct {
	// Interval is the wait between attempts. Zero or negative selects
	// DefaultInterval.
	Interval time.Duration
	// MaxAttempts is the attempt budget. Zero or negative selects
	// DefaultMaxAttempts.
	MaxAttempts int
	// FailureBudget is the number of consecutive probe errors tolerated as
	// transient before the last error is propagated. The default of zero
	// means the first probe error aborts the loop.
	FailureBudget int
}

// Poll invokes probe until isDone accepts a result, the attempt budget is
// exhausted, or ctx is cancelled. The first accepted result is returned
// immediately with no further waiting.
//
// A probe error is propagated as-is once the consecutive failure budget is
// spent; errored attempts still count against MaxAttempts. Cancellation is
// cooperative: once observed, probe is never invoked again and the loop
// returns a PollError of KindCancelled. An exhausted budget returns a
// PollError of KindTimeout; by then the probed operation may well still be
// progressing, the loop just has no more information to offer.
func Poll[T any](ctx context.Context, probe Probe[T], isDone func(T) bool, opts Options) (T, error) {
	var zero T

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	consecutiveFailures := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, &PollError{Kind: KindCancelled, Attempts: attempt - 1}
		}

		result, err := probe(ctx)
		if err != nil {
			// a cancellation accepted mid-probe wins over whatever the
			// in-flight call reported
			if ctx.Err() != nil {
				return zero, &PollError{Kind: KindCancelled, Attempts: attempt}
			}
			consecutiveFailures++
			if consecutiveFailures > opts.FailureBudget {
				return zero, err
			}
		} else {
			consecutiveFailures = 0
			if isDone(result) {
				return result, nil
			}
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, &PollError{Kind: KindCancelled, Attempts: attempt}
		case <-time.After(interval):
		}
	}

	return zero, &PollError{Kind: KindTimeout, Attempts: maxAttempts}
}
