package board

import (
	"errors"
	"fmt"
)

type ConfirmKind int

const (
	ConfirmDeleteNote ConfirmKind = iota + 1
	ConfirmDeleteTag
)

// Confirmation is a destructive action waiting for an explicit yes.
type Confirmation struct {
	Kind   ConfirmKind
	Target string
	Prompt string
}

var ErrNothingToConfirm = errors.New("board: no action awaiting confirmation")

// RequestConfirm parks a destructive action until ResolveConfirm is called.
// Abandoning a note is refused outright while the board is locked.
func (s *State) RequestConfirm(kind ConfirmKind, target string) (Confirmation, error) {
	c := Confirmation{Kind: kind, Target: target}
	switch kind {
	case ConfirmDeleteNote:
		if s.locked {
			return Confirmation{}, ErrBoardLocked
		}
		if _, ok := s.Registry.Get(target); !ok {
			return Confirmation{}, fmt.Errorf("note %q not found", target)
		}
		c.Prompt = "Are you sure you want to abandon this quest?"
	case ConfirmDeleteTag:
		c.Prompt = fmt.Sprintf("Delete tag %q?", target)
	default:
		return Confirmation{}, fmt.Errorf("unknown confirmation kind %d", kind)
	}
	s.confirm = &c
	return c, nil
}

// PendingConfirm returns the action awaiting confirmation, if any.
func (s *State) PendingConfirm() (Confirmation, bool) {
	if s.confirm == nil {
		return Confirmation{}, false
	}
	return *s.confirm, true
}

// ResolveConfirm clears the pending action and returns it when yes is true.
// Declining leaves everything else untouched.
func (s *State) ResolveConfirm(yes bool) (Confirmation, error) {
	if s.confirm == nil {
		return Confirmation{}, ErrNothingToConfirm
	}
	c := *s.confirm
	s.confirm = nil
	if !yes {
		return Confirmation{}, nil
	}
	if c.Kind == ConfirmDeleteNote && s.locked {
		return Confirmation{}, ErrBoardLocked
	}
	return c, nil
}
