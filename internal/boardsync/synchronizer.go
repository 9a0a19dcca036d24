package boardsync

import (
	"math/rand"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"questboard/internal/board"
	"questboard/internal/model"
)

// Stats counts round trips seen by a Synchronizer.
type Stats struct {
	Issued    uint64
	Completed uint64
	Failed    uint64
	Refreshes uint64
	LastError string
}

// Synchronizer applies local mutations to a board State and turns them into
// store Requests. It must be used from the goroutine that owns the State;
// executing the returned Requests is the caller's business.
type Synchronizer struct {
	state *board.State
	log   log.FieldLogger
	ids   *board.IDSource
	rng   *rand.Rand
	now   func() time.Time

	seq   uint64
	stats Stats
}

type Option func(*Synchronizer)

func WithLogger(l log.FieldLogger) Option { return func(s *Synchronizer) { s.log = l } }
func WithRand(r *rand.Rand) Option        { return func(s *Synchronizer) { s.rng = r } }

// WithNow sets the clock used for note ids and creation dates.
func WithNow(now func() time.Time) Option { return func(s *Synchronizer) { s.now = now } }

func NewSynchronizer(state *board.State, opts ...Option) *Synchronizer {
	s := &Synchronizer{state: state, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = log.StandardLogger()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.now().UnixNano()))
	}
	s.ids = board.NewIDSource(s.now)
	return s
}

func (s *Synchronizer) State() *board.State { return s.state }
func (s *Synchronizer) Stats() Stats        { return s.stats }

func (s *Synchronizer) issue(r Request) Request {
	s.seq++
	r.Seq = s.seq
	s.stats.Issued++
	return r
}

// Refresh asks for a full snapshot.
func (s *Synchronizer) Refresh() Request {
	return s.issue(Request{Op: OpFetch})
}

// Bootstrap returns the requests a freshly started viewer issues.
func (s *Synchronizer) Bootstrap() []Request {
	return []Request{s.Refresh()}
}

// CreateNote builds a note from a draft and applies it locally. Drafts
// without text or tag are skipped (ok=false) and nothing is sent.
func (s *Synchronizer) CreateNote(d board.NoteDraft) (model.Note, Request, bool) {
	n, ok := board.NewNote(d, s.ids.Next(), s.now(), s.rng)
	if !ok {
		return model.Note{}, Request{}, false
	}
	return n, s.SaveNote(n), true
}

// SaveNote writes a full note locally and returns the upsert request.
func (s *Synchronizer) SaveNote(n model.Note) Request {
	s.state.CommitLocalNote(n)
	return s.issue(Request{Op: OpUpsertNote, Note: n})
}

// CommitDrag turns a finished pointer session into an upsert. Only drag ends
// produce a request; the controller already applied the position locally.
func (s *Synchronizer) CommitDrag(out board.Outcome) (Request, bool) {
	if out.Kind != board.OutcomeDragEnd {
		return Request{}, false
	}
	return s.issue(Request{Op: OpUpsertNote, Note: out.Note}), true
}

// MoveNote places a note at a board position. Refused while locked.
func (s *Synchronizer) MoveNote(id string, x, y float64) (Request, error) {
	if s.state.Locked() {
		return Request{}, board.ErrBoardLocked
	}
	n, ok := s.state.Registry.Get(id)
	if !ok {
		return Request{}, ErrNoteNotFound
	}
	n.X, n.Y = x, y
	return s.SaveNote(n), nil
}

// DeleteNote removes a note locally. Refused while locked.
func (s *Synchronizer) DeleteNote(id string) (Request, error) {
	if s.state.Locked() {
		return Request{}, board.ErrBoardLocked
	}
	s.state.RemoveLocalNote(id)
	return s.issue(Request{Op: OpDeleteNote, Name: id}), nil
}

// AddTag creates a tag with a random colour. Empty or already known names
// are skipped.
func (s *Synchronizer) AddTag(name string) (model.Tag, Request, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Tag{}, Request{}, false
	}
	t := model.Tag{Name: name, Color: board.NewTagColor(s.rng)}
	if !s.state.AddLocalTag(t) {
		return model.Tag{}, Request{}, false
	}
	return t, s.issue(Request{Op: OpCreateTag, Tag: t}), true
}

func (s *Synchronizer) DeleteTag(name string) Request {
	s.state.RemoveLocalTag(name)
	return s.issue(Request{Op: OpDeleteTag, Name: name})
}

// AddPlayer appends a player suggestion. Empty names are skipped.
func (s *Synchronizer) AddPlayer(name string) (Request, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Request{}, false
	}
	s.state.AddLocalPlayer(model.Player{Name: name})
	return s.issue(Request{Op: OpCreatePlayer, Name: name}), true
}

func (s *Synchronizer) SetLock(locked bool) Request {
	s.state.SetLocalLock(locked)
	return s.issue(Request{Op: OpSetLock, Locked: locked})
}

// Confirm resolves the pending destructive action. A yes issues the delete;
// a no returns ok=false and changes nothing.
func (s *Synchronizer) Confirm(yes bool) (Request, bool, error) {
	c, err := s.state.ResolveConfirm(yes)
	if err != nil || c.Kind == 0 {
		return Request{}, false, err
	}
	switch c.Kind {
	case board.ConfirmDeleteNote:
		r, err := s.DeleteNote(c.Target)
		if err != nil {
			return Request{}, false, err
		}
		return r, true, nil
	case board.ConfirmDeleteTag:
		return s.DeleteTag(c.Target), true, nil
	}
	return Request{}, false, nil
}

// Complete feeds a finished round trip back into the State, in arrival
// order. A snapshot replaces the local view wholesale; a successful mutation
// asks for an immediate refresh. Failures are logged and counted only: the
// optimistic change stays until a later snapshot confirms or erases it.
func (s *Synchronizer) Complete(res Result) []Request {
	s.stats.Completed++
	req := res.Request
	if res.Err != nil {
		s.stats.Failed++
		s.stats.LastError = res.Err.Error()
		s.logger(req).WithError(res.Err).Warn("store request failed")
		return nil
	}
	if req.Op == OpFetch {
		s.stats.Refreshes++
		s.state.ApplySnapshot(res.Snapshot)
		s.logger(req).WithField("notes", len(res.Snapshot.Notes)).Debug("snapshot applied")
		return nil
	}
	s.logger(req).Debug("store request done")
	return []Request{s.Refresh()}
}

func (s *Synchronizer) logger(r Request) log.FieldLogger {
	l := s.log.WithField("op", r.Op.String()).WithField("seq", r.Seq)
	switch r.Op {
	case OpUpsertNote:
		l = l.WithField("note", r.Note.ID)
	case OpDeleteNote:
		l = l.WithField("note", r.Name)
	case OpCreateTag:
		l = l.WithField("tag", r.Tag.Name)
	case OpDeleteTag:
		l = l.WithField("tag", r.Name)
	case OpCreatePlayer:
		l = l.WithField("player", r.Name)
	case OpSetLock:
		l = l.WithField("locked", r.Locked)
	}
	return l
}
