package boardsync

import (
	"context"
	"time"
)

// DefaultPollInterval is how often a viewer fetches a fresh snapshot.
const DefaultPollInterval = 2000 * time.Millisecond

// Reconciler decides when the next snapshot refresh is due. Next blocks until
// then, or until ctx is done. Polling is one implementation; a push-based
// source would satisfy the same contract.
type Reconciler interface {
	Next(ctx context.Context) error
}

// PollReconciler fires at a fixed interval measured from the previous Next.
type PollReconciler struct {
	clock    Clock
	interval time.Duration
}

func NewPollReconciler(clock Clock, interval time.Duration) *PollReconciler {
	if clock == nil {
		clock = RealClock{}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollReconciler{clock: clock, interval: interval}
}

func (p *PollReconciler) Interval() time.Duration { return p.interval }

func (p *PollReconciler) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(p.interval):
		return nil
	}
}

// ManualReconciler fires whenever Trigger is called. It stands in for a push
// channel and is handy in tests.
type ManualReconciler struct {
	ch chan struct{}
}

func NewManualReconciler() *ManualReconciler {
	return &ManualReconciler{ch: make(chan struct{}, 1)}
}

// Trigger requests a refresh. Triggers that arrive while one is already
// queued collapse into it.
func (m *ManualReconciler) Trigger() {
	select {
	case m.ch <- struct{}{}:
	default:
	}
}

func (m *ManualReconciler) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ch:
		return nil
	}
}
