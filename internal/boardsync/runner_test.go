package boardsync

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"questboard/internal/board"
)

type runnerHarness struct {
	store   *memStore
	clock   *FakeClock
	runner  *Runner
	results chan Result
	cancel  context.CancelFunc
	done    chan error
}

func startRunner(t *testing.T) *runnerHarness {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	h := &runnerHarness{
		store:   newMemStore(),
		clock:   NewFakeClock(time.Unix(0, 0)),
		results: make(chan Result, 16),
		done:    make(chan error, 1),
	}
	s := NewSynchronizer(board.NewState(1000, 600), WithLogger(logger))
	h.runner = NewRunner(s, h.store, NewPollReconciler(h.clock, DefaultPollInterval),
		WithRunnerLogger(logger),
		WithObserver(func(res Result, _ *Synchronizer) { h.results <- res }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.runner.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *runnerHarness) next(t *testing.T) Result {
	t.Helper()
	select {
	case res := <-h.results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a round trip")
		return Result{}
	}
}

func TestRunner_BootstrapsThenPollsOnTheInterval(t *testing.T) {
	h := startRunner(t)

	if res := h.next(t); res.Request.Op != OpFetch {
		t.Fatalf("expected bootstrap fetch, got %v", res.Request.Op)
	}

	h.clock.WaitForTimers(1)
	h.clock.Advance(DefaultPollInterval - time.Millisecond)
	select {
	case res := <-h.results:
		t.Fatalf("refresh before the interval elapsed: %+v", res.Request)
	case <-time.After(50 * time.Millisecond):
	}

	h.clock.Advance(time.Millisecond)
	if res := h.next(t); res.Request.Op != OpFetch {
		t.Fatalf("expected poll fetch, got %v", res.Request.Op)
	}
	if got := h.store.count(OpFetch); got != 2 {
		t.Fatalf("expected two fetches, got %d", got)
	}
}

func TestRunner_MutationIsFollowedByRefresh(t *testing.T) {
	h := startRunner(t)
	h.next(t)

	err := h.runner.Do(context.Background(), func(s *Synchronizer) []Request {
		_, req, ok := s.CreateNote(board.NoteDraft{Text: "Gather ore", Tag: "Quest"})
		if !ok {
			return nil
		}
		return []Request{req}
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res := h.next(t); res.Request.Op != OpUpsertNote || res.Err != nil {
		t.Fatalf("expected upsert, got %+v", res)
	}
	res := h.next(t)
	if res.Request.Op != OpFetch || len(res.Snapshot.Notes) != 1 {
		t.Fatalf("expected refresh with the new note, got %+v", res)
	}
}

func TestRunner_StopsOnCancel(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	logger.SetLevel(log.PanicLevel)
	s := NewSynchronizer(board.NewState(100, 100), WithLogger(logger))
	r := NewRunner(s, newMemStore(), NewManualReconciler(), WithRunnerLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runner did not stop")
	}
}

func TestManualReconciler_CollapsesTriggers(t *testing.T) {
	m := NewManualReconciler()
	m.Trigger()
	m.Trigger()
	if err := m.Next(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Next(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected a single queued trigger, got %v", err)
	}
}
