// Package boardsync keeps a viewer's board State converged with the remote
// store: local mutations are applied optimistically and sent fire-and-forget,
// each successful mutation is followed by a full snapshot refresh, and a
// Reconciler schedules periodic refreshes in between.
package boardsync

import (
	"context"
	"fmt"

	"questboard/internal/model"
)

// Store is the remote store contract. None of the mutations return the
// updated snapshot; callers fetch it separately.
type Store interface {
	FetchSnapshot(ctx context.Context) (model.Snapshot, error)
	UpsertNote(ctx context.Context, n model.Note) error
	DeleteNote(ctx context.Context, id string) error
	CreateTag(ctx context.Context, t model.Tag) error
	DeleteTag(ctx context.Context, name string) error
	CreatePlayer(ctx context.Context, name string) error
	SetLock(ctx context.Context, locked bool) error
}

type Op int

const (
	OpFetch Op = iota
	OpUpsertNote
	OpDeleteNote
	OpCreateTag
	OpDeleteTag
	OpCreatePlayer
	OpSetLock
)

func (o Op) String() string {
	switch o {
	case OpFetch:
		return "fetch"
	case OpUpsertNote:
		return "upsert-note"
	case OpDeleteNote:
		return "delete-note"
	case OpCreateTag:
		return "create-tag"
	case OpDeleteTag:
		return "delete-tag"
	case OpCreatePlayer:
		return "create-player"
	case OpSetLock:
		return "set-lock"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Request is one store round trip issued by the Synchronizer. Only the
// fields relevant to Op are set.
type Request struct {
	Op     Op
	Seq    uint64
	Note   model.Note
	Tag    model.Tag
	Name   string
	Locked bool
}

// Result is a completed Request.
type Result struct {
	Request  Request
	Snapshot model.Snapshot
	Err      error
}

// Do performs the request against st. It never touches board state, so it is
// safe to call from any goroutine.
func (r Request) Do(ctx context.Context, st Store) Result {
	res := Result{Request: r}
	switch r.Op {
	case OpFetch:
		res.Snapshot, res.Err = st.FetchSnapshot(ctx)
	case OpUpsertNote:
		res.Err = st.UpsertNote(ctx, r.Note)
	case OpDeleteNote:
		res.Err = st.DeleteNote(ctx, r.Name)
	case OpCreateTag:
		res.Err = st.CreateTag(ctx, r.Tag)
	case OpDeleteTag:
		res.Err = st.DeleteTag(ctx, r.Name)
	case OpCreatePlayer:
		res.Err = st.CreatePlayer(ctx, r.Name)
	case OpSetLock:
		res.Err = st.SetLock(ctx, r.Locked)
	default:
		res.Err = fmt.Errorf("unknown op %v", r.Op)
	}
	return res
}
