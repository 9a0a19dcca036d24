package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"questboard/internal/model"
	"questboard/internal/store"
)

func newTestServer(t *testing.T) (*echo.Echo, *store.SQLite) {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "board.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	logger, _ := logtest.NewNullLogger()
	return New(db, logger), db
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) model.Snapshot {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var snap model.Snapshot
	if err := sonic.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return snap
}

func TestGetData_WireShape(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/api/data", "")
	body := rec.Body.String()
	if !strings.Contains(body, `"players":["Anonymous","Dragonborn"]`) {
		t.Fatalf("players must be bare strings: %s", body)
	}
	if !strings.Contains(body, `"locked":false`) || !strings.Contains(body, `"notes":[]`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestNotes_UpsertAndDelete(t *testing.T) {
	e, _ := newTestServer(t)

	note := `{"id":"1700000000000","text":"Find the Elder Scroll","tag":"Quest","assignee":"Anonymous","date":"Mar 7, 2026","image":null,"x":1510,"y":810,"rotation":-1.5}`
	if rec := do(e, http.MethodPost, "/api/notes", note); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("post note: %d %s", rec.Code, rec.Body.String())
	}
	moved := strings.Replace(note, `"x":1510`, `"x":42`, 1)
	do(e, http.MethodPost, "/api/notes", moved)

	snap := decodeSnapshot(t, do(e, http.MethodGet, "/api/data", ""))
	if len(snap.Notes) != 1 || snap.Notes[0].X != 42 || snap.Notes[0].Image != nil {
		t.Fatalf("unexpected notes %+v", snap.Notes)
	}

	if rec := do(e, http.MethodDelete, "/api/notes/1700000000000", ""); rec.Code != http.StatusOK {
		t.Fatalf("delete note: %d", rec.Code)
	}
	if snap := decodeSnapshot(t, do(e, http.MethodGet, "/api/data", "")); len(snap.Notes) != 0 {
		t.Fatalf("note not deleted: %+v", snap.Notes)
	}
}

func TestTagsPlayersAndLock(t *testing.T) {
	e, _ := newTestServer(t)

	do(e, http.MethodPost, "/api/tags", `{"name":"Alchemy","color":"hsl(120, 70%, 30%)"}`)
	do(e, http.MethodPost, "/api/tags", `{"name":"Alchemy","color":"#000000"}`)
	do(e, http.MethodDelete, "/api/tags/Magic", "")
	do(e, http.MethodPost, "/api/players", `{"name":"Lydia"}`)
	do(e, http.MethodPost, "/api/lock", `{"locked":true}`)

	snap := decodeSnapshot(t, do(e, http.MethodGet, "/api/data", ""))
	if tag, ok := snap.FindTag("Alchemy"); !ok || tag.Color != "hsl(120, 70%, 30%)" {
		t.Fatalf("unexpected tag %+v ok=%v", tag, ok)
	}
	if _, ok := snap.FindTag("Magic"); ok {
		t.Fatalf("tag not deleted")
	}
	if len(snap.Players) != 3 || !snap.Locked {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestMalformedBodiesAreRejected(t *testing.T) {
	e, _ := newTestServer(t)
	cases := []struct {
		target string
		body   string
	}{
		{"/api/notes", `{"id":`},
		{"/api/notes", `{"text":"no id"}`},
		{"/api/tags", `{"color":"#fff"}`},
		{"/api/players", `{"name":"  "}`},
		{"/api/lock", `{}`},
		{"/api/lock", `{"locked":"yes"}`},
	}
	for _, tc := range cases {
		if rec := do(e, http.MethodPost, tc.target, tc.body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400, got %d", tc.target, tc.body, rec.Code)
		}
	}
}

type failingStore struct{ *store.SQLite }

func (failingStore) UpsertNote(context.Context, model.Note) error { return errors.New("disk full") }

func TestStoreErrorsAre500AndLogged(t *testing.T) {
	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "board.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	logger, hook := logtest.NewNullLogger()
	e := New(failingStore{db}, logger)

	rec := do(e, http.MethodPost, "/api/notes", `{"id":"1","text":"t","tag":"Quest"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var found bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "upsert note failed" && entry.Data["note"] == "1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("store error not logged: %+v", hook.AllEntries())
	}
}

func TestHealthz(t *testing.T) {
	e, _ := newTestServer(t)
	if rec := do(e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
