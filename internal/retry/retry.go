// Package retry holds the bounded exponential backoff shared by the turn
// executor and the summarizer.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/roundtable/core"
)

// Defaults for remote call retries.
const (
	DefaultBaseDelay = 2 * time.Second
	DefaultMaxDelay  = 15 * time.Second
)

// Policy describes how many additional attempts follow a failed one and how
// long to wait between them.
type Policy struct {
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Attempts returns the total number of attempts including the first one.
func (p Policy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}

// Backoff returns the delay before the given retry (1-based):
// BaseDelay * 2^(retry-1), capped at MaxDelay.
func (p Policy) Backoff(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Wait sleeps for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryable reports whether a failed call may be attempted again. Failures
// caused by the caller's own context or by an exhausted call budget are final;
// a per-call deadline is not.
func Retryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, core.ErrBudgetExceeded) {
		return false
	}
	return true
}

// Classify maps a raw call error to ErrGenerationTimeout or ErrGenerationFailure,
// keeping the original error in the chain.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrBudgetExceeded),
		errors.Is(err, core.ErrGenerationTimeout),
		errors.Is(err, core.ErrGenerationFailure),
		errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(core.ErrGenerationTimeout, err)
	default:
		return errors.Join(core.ErrGenerationFailure, err)
	}
}
