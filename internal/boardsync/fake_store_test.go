package boardsync

import (
	"context"
	"errors"
	"sync"

	"questboard/internal/model"
)

var errUnavailable = errors.New("store unavailable")

// memStore is an in-memory Store with switchable failures.
type memStore struct {
	mu      sync.Mutex
	snap    model.Snapshot
	failOps map[Op]bool
	calls   map[Op]int
}

func newMemStore() *memStore {
	return &memStore{
		snap: model.Snapshot{
			Tags:    []model.Tag{{Name: "Quest", Color: "#800000"}, {Name: "Lore", Color: "#006400"}},
			Players: []model.Player{{Name: "Anonymous"}, {Name: "Dragonborn"}},
		},
		failOps: map[Op]bool{},
		calls:   map[Op]int{},
	}
}

func (m *memStore) enter(op Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if m.failOps[op] {
		return errUnavailable
	}
	return nil
}

func (m *memStore) setFail(op Op, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOps[op] = fail
}

func (m *memStore) count(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memStore) FetchSnapshot(ctx context.Context) (model.Snapshot, error) {
	if err := m.enter(OpFetch); err != nil {
		return model.Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone(), nil
}

func (m *memStore) UpsertNote(ctx context.Context, n model.Note) error {
	if err := m.enter(OpUpsertNote); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.snap.Notes {
		if m.snap.Notes[i].ID == n.ID {
			m.snap.Notes[i] = n
			return nil
		}
	}
	m.snap.Notes = append(m.snap.Notes, n)
	return nil
}

func (m *memStore) DeleteNote(ctx context.Context, id string) error {
	if err := m.enter(OpDeleteNote); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.snap.Notes {
		if m.snap.Notes[i].ID == id {
			m.snap.Notes = append(m.snap.Notes[:i], m.snap.Notes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) CreateTag(ctx context.Context, t model.Tag) error {
	if err := m.enter(OpCreateTag); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snap.FindTag(t.Name); !ok {
		m.snap.Tags = append(m.snap.Tags, t)
	}
	return nil
}

func (m *memStore) DeleteTag(ctx context.Context, name string) error {
	if err := m.enter(OpDeleteTag); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.snap.Tags {
		if m.snap.Tags[i].Name == name {
			m.snap.Tags = append(m.snap.Tags[:i], m.snap.Tags[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) CreatePlayer(ctx context.Context, name string) error {
	if err := m.enter(OpCreatePlayer); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Players = append(m.snap.Players, model.Player{Name: name})
	return nil
}

func (m *memStore) SetLock(ctx context.Context, locked bool) error {
	if err := m.enter(OpSetLock); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Locked = locked
	return nil
}

// moveRemote simulates another viewer's committed drag.
func (m *memStore) moveRemote(id string, x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.snap.Notes {
		if m.snap.Notes[i].ID == id {
			m.snap.Notes[i].X, m.snap.Notes[i].Y = x, y
		}
	}
}
