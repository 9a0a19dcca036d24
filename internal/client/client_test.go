package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"questboard/internal/boardsync"
	"questboard/internal/model"
	"questboard/internal/server"
	"questboard/internal/store"
)

var _ boardsync.Store = (*Client)(nil)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "board.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	logger, _ := logtest.NewNullLogger()
	srv := httptest.NewServer(server.New(db, logger))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClient_RoundTripsEveryOperation(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	img := "data:image/png;base64,iVBORw0KGgo="
	n := model.Note{ID: "n 1", Text: "Temper steel", Tag: "Smithing", Assignee: "Dragonborn", Date: "Mar 7, 2026", Image: &img, X: 100, Y: 200, Rotation: 2}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"upsert", func() error { return c.UpsertNote(ctx, n) }},
		{"create tag", func() error { return c.CreateTag(ctx, model.Tag{Name: "Rune Lore", Color: "hsl(1, 70%, 30%)"}) }},
		{"delete tag", func() error { return c.DeleteTag(ctx, "Magic") }},
		{"create player", func() error { return c.CreatePlayer(ctx, "Lydia") }},
		{"lock", func() error { return c.SetLock(ctx, true) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
	}

	snap, err := c.FetchSnapshot(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Notes) != 1 || snap.Notes[0].ID != "n 1" || snap.Notes[0].Image == nil || *snap.Notes[0].Image != img {
		t.Fatalf("unexpected notes %+v", snap.Notes)
	}
	if _, ok := snap.FindTag("Rune Lore"); !ok {
		t.Fatalf("tag with a space not created")
	}
	if _, ok := snap.FindTag("Magic"); ok {
		t.Fatalf("tag not deleted")
	}
	if !snap.Locked || len(snap.Players) != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := c.DeleteNote(ctx, "n 1"); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	snap, _ = c.FetchSnapshot(ctx)
	if len(snap.Notes) != 0 {
		t.Fatalf("escaped id not deleted: %+v", snap.Notes)
	}
}

func TestClient_NonOKIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	err = c.SetLock(context.Background(), true)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError || se.Path != "/api/lock" {
		t.Fatalf("expected StatusError, got %v", err)
	}
}

func TestNew_AddsSchemeAndRejectsEmpty(t *testing.T) {
	if _, err := New("  ", nil); err == nil {
		t.Fatalf("expected error for empty url")
	}
	c, err := New("localhost:8000", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.BaseURL() != "http://localhost:8000" {
		t.Fatalf("unexpected base url %q", c.BaseURL())
	}
}
