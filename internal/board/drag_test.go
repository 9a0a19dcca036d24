package board

import (
	"errors"
	"math"
	"testing"

	"questboard/internal/model"
	"questboard/internal/viewport"
)

// newTestState returns a 1000x600 viewer at scale 1 with one note whose
// top-left is at board (1550, 850), so the surface centre (500, 300) is
// 50 board units into the card on both axes.
func newTestState(t *testing.T, locked bool) *State {
	t.Helper()
	s := NewState(1000, 600)
	s.ApplySnapshot(model.Snapshot{
		Notes:  []model.Note{{ID: "n1", Text: "Find the Elder Scroll", Tag: "Quest", X: 1550, Y: 850}},
		Tags:   []model.Tag{{Name: "Quest", Color: "#800000"}},
		Locked: locked,
	})
	return s
}

func TestPointerUp_ClickDragThreshold(t *testing.T) {
	cases := []struct {
		name string
		dx   float64
		dy   float64
		want OutcomeKind
	}{
		{name: "still", dx: 0, dy: 0, want: OutcomeClick},
		{name: "4.9px", dx: 4.9, dy: 0, want: OutcomeClick},
		{name: "exactly 5px", dx: 3, dy: 4, want: OutcomeDragEnd},
		{name: "5.1px", dx: 0, dy: 5.1, want: OutcomeDragEnd},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestState(t, false)
			down := viewport.Point{X: 500, Y: 300}
			if kind, err := s.Drag.PointerDown(down); err != nil || kind != SessionNote {
				t.Fatalf("pointer down: kind=%v err=%v", kind, err)
			}
			up := viewport.Point{X: down.X + tc.dx, Y: down.Y + tc.dy}
			s.Drag.PointerMove(up)
			out := s.Drag.PointerUp(up)
			if out.Kind != tc.want {
				t.Fatalf("expected outcome %v, got %v (displacement %v)", tc.want, out.Kind, out.Displacement)
			}
			n, _ := s.Registry.Get("n1")
			if tc.want == OutcomeClick {
				if n.X != 1550 || n.Y != 850 {
					t.Fatalf("click moved the note to (%v, %v)", n.X, n.Y)
				}
				if len(s.Registry.Pending()) != 0 {
					t.Fatalf("click produced a pending mutation")
				}
			} else {
				if !s.Registry.IsPending("n1") {
					t.Fatalf("expected drag end to commit a pending upsert")
				}
				if math.Abs(n.X-(1550+tc.dx)) > 1e-9 || math.Abs(n.Y-(850+tc.dy)) > 1e-9 {
					t.Fatalf("unexpected committed position (%v, %v)", n.X, n.Y)
				}
			}
			if s.Drag.Active() {
				t.Fatalf("expected session to end on pointer up")
			}
		})
	}
}

func TestDragOffset_IsStableWhenZoomChangesMidGesture(t *testing.T) {
	s := newTestState(t, false)
	if _, err := s.Drag.PointerDown(viewport.Point{X: 500, Y: 300}); err != nil {
		t.Fatalf("pointer down: %v", err)
	}
	if off := s.Drag.Offset(); off.X != 50 || off.Y != 50 {
		t.Fatalf("expected board offset (50, 50), got %+v", off)
	}

	if _, ok := s.Viewport.ZoomBy(1.0); !ok {
		t.Fatalf("zoom to 2.0 rejected")
	}

	release := viewport.Point{X: 700, Y: 420}
	s.Drag.PointerMove(release)
	if off := s.Drag.Offset(); off.X != 50 || off.Y != 50 {
		t.Fatalf("offset changed under zoom: %+v", off)
	}
	out := s.Drag.PointerUp(release)
	if out.Kind != OutcomeDragEnd {
		t.Fatalf("expected drag end, got %v", out.Kind)
	}

	bp := s.Viewport.ScreenToBoard(release)
	if math.Abs(bp.X-out.Note.X-50) > 1e-9 || math.Abs(bp.Y-out.Note.Y-50) > 1e-9 {
		t.Fatalf("pointer-to-corner offset not preserved: pointer=%+v note=(%v, %v)", bp, out.Note.X, out.Note.Y)
	}
}

func TestLockedBoard_NeverCommitsDrags(t *testing.T) {
	s := newTestState(t, true)
	kind, err := s.Drag.PointerDown(viewport.Point{X: 500, Y: 300})
	if err != nil || kind != SessionClickOnly {
		t.Fatalf("expected click-only session, got kind=%v err=%v", kind, err)
	}
	s.Drag.PointerMove(viewport.Point{X: 800, Y: 500})
	out := s.Drag.PointerUp(viewport.Point{X: 800, Y: 500})
	if out.Kind != OutcomeNone {
		t.Fatalf("expected no outcome for a locked drag, got %v", out.Kind)
	}
	n, _ := s.Registry.Get("n1")
	if n.X != 1550 || n.Y != 850 || len(s.Registry.Pending()) != 0 {
		t.Fatalf("locked drag mutated the registry: note=(%v,%v) pending=%v", n.X, n.Y, s.Registry.Pending())
	}

	// Viewing stays available.
	if _, err := s.Drag.PointerDown(viewport.Point{X: 500, Y: 300}); err != nil {
		t.Fatalf("pointer down: %v", err)
	}
	if out := s.Drag.PointerUp(viewport.Point{X: 501, Y: 301}); out.Kind != OutcomeClick || out.Note.ID != "n1" {
		t.Fatalf("expected click on locked board, got %+v", out)
	}
}

func TestLockArrivingMidDrag_AbortsTheDrag(t *testing.T) {
	s := newTestState(t, false)
	if _, err := s.Drag.PointerDown(viewport.Point{X: 500, Y: 300}); err != nil {
		t.Fatalf("pointer down: %v", err)
	}
	s.Drag.PointerMove(viewport.Point{X: 600, Y: 300})

	s.ApplySnapshot(model.Snapshot{
		Notes:  s.Registry.Confirmed(),
		Tags:   s.Tags(),
		Locked: true,
	})

	if out := s.Drag.PointerUp(viewport.Point{X: 600, Y: 300}); out.Kind != OutcomeNone {
		t.Fatalf("expected aborted drag, got %v", out.Kind)
	}
	if n, _ := s.Registry.Get("n1"); n.X != 1550 {
		t.Fatalf("aborted drag moved the note to x=%v", n.X)
	}
}

func TestPointerDown_RejectsSecondSession(t *testing.T) {
	s := newTestState(t, false)
	if _, err := s.Drag.PointerDown(viewport.Point{X: 500, Y: 300}); err != nil {
		t.Fatalf("pointer down: %v", err)
	}
	if _, err := s.Drag.PointerDown(viewport.Point{X: 10, Y: 10}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if s.Drag.NoteID() != "n1" {
		t.Fatalf("second pointer-down hijacked the session")
	}
}

func TestPointerDown_RaisesStackingOrderMonotonically(t *testing.T) {
	s := newTestState(t, false)
	s.CommitLocalNote(model.Note{ID: "n2", Text: "Forge a sword", Tag: "Quest", X: 1560, Y: 860})

	// n2 was created later and is painted after n1, so it is hit first.
	s.Drag.PointerDown(viewport.Point{X: 500, Y: 300})
	if s.Drag.NoteID() != "n2" {
		t.Fatalf("expected topmost note n2, got %q", s.Drag.NoteID())
	}
	s.Drag.PointerUp(viewport.Point{X: 500, Y: 300})
	z2 := s.Stack.Z("n2")

	// Click on a spot only n1 covers, then the overlap again.
	s.Drag.PointerDown(viewport.Point{X: 455, Y: 255})
	s.Drag.PointerUp(viewport.Point{X: 455, Y: 255})
	z1 := s.Stack.Z("n1")
	if z1 <= z2 {
		t.Fatalf("expected n1 raised above n2: z1=%d z2=%d", z1, z2)
	}
	s.Drag.PointerDown(viewport.Point{X: 500, Y: 300})
	if s.Drag.NoteID() != "n1" {
		t.Fatalf("expected most recently touched note on top, got %q", s.Drag.NoteID())
	}
}

func TestPan_OnEmptyBoard(t *testing.T) {
	s := newTestState(t, false)
	kind, err := s.Drag.PointerDown(viewport.Point{X: 10, Y: 10})
	if err != nil || kind != SessionPan {
		t.Fatalf("expected pan session, got kind=%v err=%v", kind, err)
	}
	s.Drag.PointerMove(viewport.Point{X: 40, Y: 30})
	out := s.Drag.PointerUp(viewport.Point{X: 60, Y: 50})
	if out.Kind != OutcomePanEnd {
		t.Fatalf("expected pan end, got %v", out.Kind)
	}
	if p := s.Viewport.Pan(); p.X != 50 || p.Y != 40 {
		t.Fatalf("unexpected pan %+v", p)
	}

	locked := newTestState(t, true)
	if kind, _ := locked.Drag.PointerDown(viewport.Point{X: 10, Y: 10}); kind != SessionNone {
		t.Fatalf("expected no pan on a locked board, got %v", kind)
	}
}
