package board

import (
	"errors"

	"questboard/internal/model"
	"questboard/internal/viewport"
)

// ClickThreshold is the screen-space displacement below which a
// pointer-down/up pair is a click. Exactly 5.0 counts as a drag.
const ClickThreshold = 5.0

var ErrSessionActive = errors.New("board: a pointer session is already active")

type SessionKind int

const (
	SessionNone SessionKind = iota
	// SessionNote is a pointer-down on a note with the board unlocked.
	SessionNote
	// SessionClickOnly is a pointer-down on a note while the board is locked:
	// it can end in a click, never in a mutation.
	SessionClickOnly
	// SessionPan is a pointer-down on empty board with the board unlocked.
	SessionPan
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhasePotentialDrag
	PhaseDragging
)

func (p Phase) String() string {
	switch p {
	case PhasePotentialDrag:
		return "potential-drag"
	case PhaseDragging:
		return "dragging"
	default:
		return "idle"
	}
}

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeClick
	OutcomeDragEnd
	OutcomePanEnd
)

// Outcome is what a completed pointer session amounts to.
type Outcome struct {
	Kind         OutcomeKind
	NoteID       string
	Note         model.Note
	Displacement float64
}

// StackOrder hands out stacking positions. The counter only grows, so the
// most recently touched note is always topmost.
type StackOrder struct {
	next int
	z    map[string]int
}

func NewStackOrder() *StackOrder {
	return &StackOrder{next: 10, z: map[string]int{}}
}

func (s *StackOrder) Raise(id string) int {
	s.next++
	s.z[id] = s.next
	return s.next
}

// Z returns the stacking position of id; untouched notes are 0.
func (s *StackOrder) Z(id string) int { return s.z[id] }

// Top is the last value handed out.
func (s *StackOrder) Top() int { return s.next }

// DragController turns raw pointer events into clicks, drags and pans.
// At most one session is active at a time.
type DragController struct {
	vp     *viewport.Viewport
	reg    *Registry
	stack  *StackOrder
	locked func() bool
	hit    func(viewport.Point) (string, bool)
	commit func(model.Note)

	kind     SessionKind
	phase    Phase
	noteID   string
	down     viewport.Point
	offset   viewport.Point
	panStart viewport.Point
}

// Active reports whether a pointer session is in progress.
func (d *DragController) Active() bool { return d.kind != SessionNone }

func (d *DragController) Kind() SessionKind { return d.kind }
func (d *DragController) Phase() Phase      { return d.phase }
func (d *DragController) NoteID() string    { return d.noteID }

// Offset is the pointer offset from the dragged note's top-left, in board units.
func (d *DragController) Offset() viewport.Point { return d.offset }

// PointerDown starts a session at screen point p. The lock state is sampled
// here, once, for the whole session.
func (d *DragController) PointerDown(p viewport.Point) (SessionKind, error) {
	if d.Active() {
		return d.kind, ErrSessionActive
	}
	bp := d.vp.ScreenToBoard(p)
	id, onNote := d.hit(bp)
	locked := d.locked()

	switch {
	case onNote && locked:
		d.begin(SessionClickOnly, p)
		d.noteID = id
	case onNote:
		n, ok := d.reg.Get(id)
		if !ok {
			return SessionNone, nil
		}
		d.begin(SessionNote, p)
		d.noteID = id
		d.offset = viewport.Point{X: bp.X - n.X, Y: bp.Y - n.Y}
		d.stack.Raise(id)
	case !locked:
		d.begin(SessionPan, p)
		d.panStart = p.Sub(d.vp.Pan())
	default:
		return SessionNone, nil
	}
	return d.kind, nil
}

func (d *DragController) begin(kind SessionKind, p viewport.Point) {
	d.kind = kind
	d.phase = PhasePotentialDrag
	d.down = p
	d.noteID = ""
	d.offset = viewport.Point{}
}

// PointerMove updates the live drag or pan. Note positions only change
// locally; nothing is committed until PointerUp.
func (d *DragController) PointerMove(p viewport.Point) {
	switch d.kind {
	case SessionNote:
		bp := d.vp.ScreenToBoard(p)
		d.reg.setDrag(d.noteID, bp.X-d.offset.X, bp.Y-d.offset.Y)
		d.phase = PhaseDragging
	case SessionPan:
		d.vp.PanTo(p.Sub(d.panStart))
		d.phase = PhaseDragging
	}
}

// PointerUp ends the session and classifies it by screen displacement.
func (d *DragController) PointerUp(p viewport.Point) Outcome {
	if !d.Active() {
		return Outcome{}
	}
	defer d.reset()

	dist := p.Dist(d.down)
	out := Outcome{NoteID: d.noteID, Displacement: dist}

	switch d.kind {
	case SessionClickOnly:
		if dist < ClickThreshold {
			out.Kind = OutcomeClick
			out.Note, _ = d.reg.Get(d.noteID)
		}
		return out
	case SessionPan:
		d.vp.PanTo(p.Sub(d.panStart))
		out.Kind = OutcomePanEnd
		return out
	}

	if dist < ClickThreshold {
		d.reg.clearDrag()
		out.Kind = OutcomeClick
		out.Note, _ = d.reg.Get(d.noteID)
		return out
	}

	// Final position comes from the release point, so a release without any
	// preceding move still lands where the pointer is.
	d.PointerMove(p)
	n, ok := d.reg.Get(d.noteID)
	d.reg.clearDrag()
	if !ok {
		return Outcome{NoteID: d.noteID, Displacement: dist}
	}
	out.Kind = OutcomeDragEnd
	out.Note = n
	if d.commit != nil {
		d.commit(n)
	}
	return out
}

// Cancel abandons the active session without committing anything.
func (d *DragController) Cancel() {
	if d.kind == SessionNote {
		d.reg.clearDrag()
	}
	d.reset()
}

func (d *DragController) reset() {
	d.kind = SessionNone
	d.phase = PhaseIdle
	d.noteID = ""
	d.offset = viewport.Point{}
}
