package board

import (
	"questboard/internal/model"
)

type pendingKind int

const (
	pendingUpsert pendingKind = iota
	pendingDelete
)

// pendingEntry is a local mutation not yet confirmed by a snapshot.
type pendingEntry struct {
	kind pendingKind
	note model.Note
	seq  uint64
}

type dragOverlay struct {
	id   string
	x, y float64
}

// Registry maps note ids to their board-space state.
//
// It keeps the last snapshot observed from the store ("confirmed") apart from
// local optimistic mutations ("pending") and the live position of the note
// being dragged. Notes() is the composition of the three, in that order.
type Registry struct {
	confirmed []model.Note
	index     map[string]int

	pending      map[string]pendingEntry
	pendingOrder []string
	seq          uint64

	drag *dragOverlay
}

func NewRegistry() *Registry {
	return &Registry{
		index:   map[string]int{},
		pending: map[string]pendingEntry{},
	}
}

// Reconcile replaces the confirmed state with a freshly fetched snapshot and
// drops every pending mutation. The drag overlay survives if its note is still
// present; it reports false when the dragged note disappeared.
func (r *Registry) Reconcile(notes []model.Note) (dragKept bool) {
	r.confirmed = append(r.confirmed[:0:0], notes...)
	r.index = make(map[string]int, len(notes))
	for i, n := range r.confirmed {
		r.index[n.ID] = i
	}
	r.pending = map[string]pendingEntry{}
	r.pendingOrder = nil

	if r.drag == nil {
		return true
	}
	if _, ok := r.index[r.drag.id]; !ok {
		r.drag = nil
		return false
	}
	return true
}

// Upsert records a local full-note write. It returns the mutation sequence number.
func (r *Registry) Upsert(n model.Note) uint64 {
	return r.addPending(pendingEntry{kind: pendingUpsert, note: n})
}

// Remove records a local delete.
func (r *Registry) Remove(id string) uint64 {
	if r.drag != nil && r.drag.id == id {
		r.drag = nil
	}
	return r.addPending(pendingEntry{kind: pendingDelete, note: model.Note{ID: id}})
}

func (r *Registry) addPending(e pendingEntry) uint64 {
	r.seq++
	e.seq = r.seq
	if _, ok := r.pending[e.note.ID]; !ok {
		r.pendingOrder = append(r.pendingOrder, e.note.ID)
	}
	r.pending[e.note.ID] = e
	return e.seq
}

// Get returns the current view of a note.
func (r *Registry) Get(id string) (model.Note, bool) {
	var n model.Note
	found := false
	if i, ok := r.index[id]; ok {
		n = r.confirmed[i]
		found = true
	}
	if p, ok := r.pending[id]; ok {
		switch p.kind {
		case pendingDelete:
			return model.Note{}, false
		case pendingUpsert:
			n = p.note
			found = true
		}
	}
	if found && r.drag != nil && r.drag.id == id {
		n.X, n.Y = r.drag.x, r.drag.y
	}
	return n, found
}

// Notes returns the composed view: confirmed notes in snapshot order followed
// by locally created ones.
func (r *Registry) Notes() []model.Note {
	out := make([]model.Note, 0, len(r.confirmed)+len(r.pendingOrder))
	for _, n := range r.confirmed {
		if v, ok := r.Get(n.ID); ok {
			out = append(out, v)
		}
	}
	for _, id := range r.pendingOrder {
		if _, ok := r.index[id]; ok {
			continue
		}
		if v, ok := r.Get(id); ok {
			out = append(out, v)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.Notes()) }

// Pending lists ids with unconfirmed local mutations, oldest first.
func (r *Registry) Pending() []string {
	return append([]string(nil), r.pendingOrder...)
}

// IsPending reports whether id has an unconfirmed local mutation.
func (r *Registry) IsPending(id string) bool {
	_, ok := r.pending[id]
	return ok
}

// Confirmed returns the last reconciled snapshot's notes.
func (r *Registry) Confirmed() []model.Note {
	return append([]model.Note(nil), r.confirmed...)
}

func (r *Registry) setDrag(id string, x, y float64) {
	r.drag = &dragOverlay{id: id, x: x, y: y}
}

func (r *Registry) clearDrag() {
	r.drag = nil
}

// Dragging returns the id of the note with a live drag overlay.
func (r *Registry) Dragging() (string, bool) {
	if r.drag == nil {
		return "", false
	}
	return r.drag.id, true
}
