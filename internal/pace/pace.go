// Package pace provides fixed-duration, context-aware waits.
//
// The crawl loops use fixed sleeps everywhere (token activation, settle
// intervals, politeness delays) rather than adaptive backoff, so the only
// abstraction needed is "wait this long unless canceled".
package pace

import (
	"context"
	"time"
)

// Pauser abstracts how the pipeline waits between actions.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Timer implements Pauser with a real timer.
type Timer struct{}

// Pause blocks for delay or until ctx is done, whichever comes first.
func (Timer) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Nop implements Pauser without waiting. Tests use it to keep loops fast.
type Nop struct{}

// Pause returns immediately.
func (Nop) Pause(context.Context, time.Duration) {}
