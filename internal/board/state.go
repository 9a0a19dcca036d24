// Package board holds the client-side state of one board viewer: the spatial
// object registry, the tag filter, the pointer controller, and the tags,
// players and lock flag observed from the store.
//
// A State is owned by a single interaction thread. Nothing in this package
// locks; callers serialise access.
package board

import (
	"errors"
	"sort"
	"strings"

	"questboard/internal/model"
	"questboard/internal/viewport"
)

var ErrBoardLocked = errors.New("board is locked")

type State struct {
	Viewport *viewport.Viewport
	Registry *Registry
	Filter   *FilterIndex
	Drag     *DragController
	Stack    *StackOrder

	tags    []model.Tag
	players []model.Player
	locked  bool

	confirm *Confirmation
}

// NewState returns an empty board viewed through a surface of the given size.
func NewState(width, height float64) *State {
	s := &State{
		Viewport: viewport.New(width, height),
		Registry: NewRegistry(),
		Filter:   NewFilterIndex(),
		Stack:    NewStackOrder(),
	}
	s.Drag = &DragController{
		vp:     s.Viewport,
		reg:    s.Registry,
		stack:  s.Stack,
		locked: s.Locked,
		hit:    s.HitTest,
		commit: func(n model.Note) { s.CommitLocalNote(n) },
	}
	s.refilter()
	return s
}

func (s *State) Locked() bool            { return s.locked }
func (s *State) Tags() []model.Tag       { return append([]model.Tag(nil), s.tags...) }
func (s *State) Players() []model.Player { return append([]model.Player(nil), s.players...) }

// ApplySnapshot replaces all shared state with a snapshot fetched from the
// store. A drag in progress survives unless its note is gone.
func (s *State) ApplySnapshot(snap model.Snapshot) {
	if kept := s.Registry.Reconcile(snap.Notes); !kept {
		s.Drag.Cancel()
	}
	s.tags = append([]model.Tag(nil), snap.Tags...)
	s.players = append([]model.Player(nil), snap.Players...)
	s.SetLocalLock(snap.Locked)
	s.refilter()
}

// Snapshot is the current local view in snapshot form.
func (s *State) Snapshot() model.Snapshot {
	return model.Snapshot{
		Notes:   s.Registry.Notes(),
		Tags:    s.Tags(),
		Players: s.Players(),
		Locked:  s.locked,
	}
}

// CommitLocalNote applies a full-note write optimistically.
func (s *State) CommitLocalNote(n model.Note) uint64 {
	seq := s.Registry.Upsert(n)
	s.refilter()
	return seq
}

func (s *State) RemoveLocalNote(id string) uint64 {
	if s.Drag.NoteID() == id {
		s.Drag.Cancel()
	}
	seq := s.Registry.Remove(id)
	s.refilter()
	return seq
}

// AddLocalTag adds a tag unless one with the same name exists.
func (s *State) AddLocalTag(t model.Tag) bool {
	for _, existing := range s.tags {
		if existing.Name == t.Name {
			return false
		}
	}
	s.tags = append(s.tags, t)
	return true
}

// RemoveLocalTag drops a tag. Notes that reference it are kept and fall back
// to the default colour.
func (s *State) RemoveLocalTag(name string) bool {
	for i, t := range s.tags {
		if t.Name == name {
			s.tags = append(s.tags[:i:i], s.tags[i+1:]...)
			return true
		}
	}
	return false
}

func (s *State) AddLocalPlayer(p model.Player) {
	s.players = append(s.players, p)
}

// SetLocalLock sets the lock flag. Locking aborts a drag or pan in progress
// so that nothing started before the lock gets committed after it.
func (s *State) SetLocalLock(locked bool) {
	s.locked = locked
	if locked && s.Drag.Active() && s.Drag.Kind() != SessionClickOnly {
		s.Drag.Cancel()
	}
}

// SetFilter selects a tag name or model.FilterAll.
func (s *State) SetFilter(f string) {
	if strings.TrimSpace(f) == "" {
		f = model.FilterAll
	}
	s.Filter.Recompute(s.Registry.Notes(), f)
}

// FilterOptions lists "all" followed by every known tag name.
func (s *State) FilterOptions() []string {
	out := []string{model.FilterAll}
	for _, t := range s.tags {
		out = append(out, t.Name)
	}
	return out
}

func (s *State) refilter() {
	s.Filter.Recompute(s.Registry.Notes(), s.Filter.Selected())
}

// StackedNotes returns the visible notes in paint order: bottom first.
func (s *State) StackedNotes() []model.Note {
	all := s.Registry.Notes()
	out := make([]model.Note, 0, len(all))
	for _, n := range all {
		if s.Filter.Visible(n.ID) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.Stack.Z(out[i].ID) < s.Stack.Z(out[j].ID)
	})
	return out
}

// HitTest finds the topmost visible note under a board point.
func (s *State) HitTest(p viewport.Point) (string, bool) {
	notes := s.StackedNotes()
	for i := len(notes) - 1; i >= 0; i-- {
		if notes[i].Contains(p.X, p.Y) {
			return notes[i].ID, true
		}
	}
	return "", false
}

// TagColor returns the display colour of a tag, or the fallback colour for
// tags that no longer exist.
func (s *State) TagColor(name string) string {
	for _, t := range s.tags {
		if t.Name == name {
			return t.Color
		}
	}
	return model.FallbackTagColor
}

// PlayerSuggestions returns known players whose name contains query,
// case-insensitively. An empty query suggests nothing.
func (s *State) PlayerSuggestions(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []string
	for _, p := range s.players {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p.Name)
		}
	}
	return out
}
