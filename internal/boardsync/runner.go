package boardsync

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Runner is a headless interaction thread. It owns the Synchronizer (and so
// the board State), executes Requests on worker goroutines and serialises
// their results, reconciler ticks and queued actions onto one loop.
type Runner struct {
	sync  *Synchronizer
	store Store
	rec   Reconciler
	log   log.FieldLogger

	results chan Result
	ticks   chan struct{}
	actions chan func(*Synchronizer) []Request

	observe  func(Result, *Synchronizer)
	inflight sync.WaitGroup
}

type RunnerOption func(*Runner)

// WithObserver registers fn to run on the loop after every completed round
// trip has been applied.
func WithObserver(fn func(Result, *Synchronizer)) RunnerOption {
	return func(r *Runner) { r.observe = fn }
}

func WithRunnerLogger(l log.FieldLogger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

func NewRunner(s *Synchronizer, st Store, rec Reconciler, opts ...RunnerOption) *Runner {
	r := &Runner{
		sync:    s,
		store:   st,
		rec:     rec,
		results: make(chan Result),
		ticks:   make(chan struct{}),
		actions: make(chan func(*Synchronizer) []Request),
	}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = log.StandardLogger()
	}
	return r
}

// Run bootstraps and then loops until ctx is done. It waits for in-flight
// requests to return before it does.
func (r *Runner) Run(ctx context.Context) error {
	go r.poll(ctx)
	r.dispatch(ctx, r.sync.Bootstrap())

	for {
		select {
		case <-ctx.Done():
			r.inflight.Wait()
			return ctx.Err()
		case res := <-r.results:
			next := r.sync.Complete(res)
			if r.observe != nil {
				r.observe(res, r.sync)
			}
			r.dispatch(ctx, next)
		case <-r.ticks:
			r.dispatch(ctx, []Request{r.sync.Refresh()})
		case fn := <-r.actions:
			r.dispatch(ctx, fn(r.sync))
		}
	}
}

// Do queues fn to run on the loop. The requests it returns are dispatched
// like any other. Do blocks until the loop has picked fn up.
func (r *Runner) Do(ctx context.Context, fn func(*Synchronizer) []Request) error {
	select {
	case r.actions <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) poll(ctx context.Context) {
	for {
		if err := r.rec.Next(ctx); err != nil {
			return
		}
		select {
		case r.ticks <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) dispatch(ctx context.Context, reqs []Request) {
	for _, req := range reqs {
		r.inflight.Add(1)
		go func(req Request) {
			defer r.inflight.Done()
			res := req.Do(ctx, r.store)
			select {
			case r.results <- res:
			case <-ctx.Done():
			}
		}(req)
	}
}
