package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"questboard/internal/boardsync"
	"questboard/internal/model"
	"questboard/internal/store"
	"questboard/internal/viewport"
)

// newTestModel opens a board backed by a temporary SQLite store holding one
// note, loads it, and sizes the terminal to 125x40.
func newTestModel(t *testing.T, locked bool) (boardModel, *store.SQLite) {
	t.Helper()
	ctx := context.Background()
	db, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "board.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.UpsertNote(ctx, model.Note{ID: "n1", Text: "Find the Elder Scroll", Tag: "Quest", Assignee: "Dragonborn", Date: "Mar 7, 2026", X: 1550, Y: 850}); err != nil {
		t.Fatalf("seed note: %v", err)
	}
	if locked {
		if err := db.SetLock(ctx, true); err != nil {
			t.Fatalf("lock: %v", err)
		}
	}

	m := newBoardModel(ctx, Options{Store: db, Reconciler: boardsync.NewManualReconciler(), Player: "Dragonborn"})
	m = drain(t, m, m.do(m.sync.Bootstrap()...))
	mAny, _ := m.Update(tea.WindowSizeMsg{Width: 125, Height: 40})
	return mAny.(boardModel), db
}

// drain runs cmd and every command it leads to, feeding store results back
// into the model.
func drain(t *testing.T, m boardModel, cmd tea.Cmd) boardModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case resultMsg:
			mAny, next := m.Update(msg)
			m = mAny.(boardModel)
			queue = append(queue, next)
		}
	}
	return m
}

// noteCell returns the terminal cell at the centre of a note.
func noteCell(t *testing.T, m boardModel, id string) (int, int) {
	t.Helper()
	n, ok := m.state.Registry.Get(id)
	if !ok {
		t.Fatalf("note %s not loaded", id)
	}
	p := m.state.Viewport.BoardToScreen(viewport.Point{X: n.X + model.NoteWidth/2, Y: n.Y + model.NoteHeight/2})
	col, row := screenToCell(p)
	return col, row + 1
}

func mouse(m boardModel, x, y int, action tea.MouseAction, button tea.MouseButton) (boardModel, tea.Cmd) {
	mAny, cmd := m.Update(tea.MouseMsg{X: x, Y: y, Action: action, Button: button})
	return mAny.(boardModel), cmd
}

func key(m boardModel, k string) (boardModel, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	mAny, cmd := m.Update(msg)
	return mAny.(boardModel), cmd
}

func TestWindowSize_FitsBoardOnFirstSize(t *testing.T) {
	m, _ := newTestModel(t, false)
	w, h := m.state.Viewport.Size()
	if w != 1000 || h != 38*cellH {
		t.Fatalf("unexpected surface %vx%v", w, h)
	}
	if s := m.state.Viewport.Scale(); s != 1000/model.BoardWidth {
		t.Fatalf("expected fit scale, got %v", s)
	}

	m.state.Viewport.ZoomBy(0.5)
	mAny, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = mAny.(boardModel)
	if s := m.state.Viewport.Scale(); s != 1000/model.BoardWidth+0.5 {
		t.Fatalf("resize after the first size must keep the zoom, got %v", s)
	}
}

func TestClick_OpensDetail(t *testing.T) {
	m, _ := newTestModel(t, false)
	col, row := noteCell(t, m, "n1")
	m, _ = mouse(m, col, row, tea.MouseActionPress, tea.MouseButtonLeft)
	m, cmd := mouse(m, col, row, tea.MouseActionRelease, tea.MouseButtonNone)
	if cmd != nil {
		t.Fatalf("a click must not issue a store request")
	}
	if m.mode != modeDetail || m.detailID != "n1" {
		t.Fatalf("expected detail for n1, got mode=%v id=%q", m.mode, m.detailID)
	}
	if v := xansi.Strip(m.View()); !strings.Contains(v, "Find the Elder Scroll") {
		t.Fatalf("detail view missing note text:\n%s", v)
	}
	m, _ = key(m, "esc")
	if m.mode != modeBoard {
		t.Fatalf("esc did not close the detail view")
	}
}

func TestDrag_PersistsNewPosition(t *testing.T) {
	m, db := newTestModel(t, false)
	col, row := noteCell(t, m, "n1")
	m, _ = mouse(m, col, row, tea.MouseActionPress, tea.MouseButtonLeft)
	m, _ = mouse(m, col+3, row, tea.MouseActionMotion, tea.MouseButtonLeft)
	m, cmd := mouse(m, col+5, row, tea.MouseActionRelease, tea.MouseButtonNone)
	if cmd == nil {
		t.Fatalf("expected the drag to issue an upsert")
	}
	if !m.state.Registry.IsPending("n1") {
		t.Fatalf("expected optimistic position before the store answers")
	}
	m = drain(t, m, cmd)

	snap, err := db.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	wantX := 1550 + 5*cellW/m.state.Viewport.Scale()
	if got := snap.Notes[0].X; got < wantX-1e-6 || got > wantX+1e-6 {
		t.Fatalf("stored x=%v, want %v", got, wantX)
	}
	if len(m.state.Registry.Pending()) != 0 {
		t.Fatalf("refresh after the upsert should have reconciled pending state")
	}
}

func TestDrag_LockedBoardStaysPut(t *testing.T) {
	m, _ := newTestModel(t, true)
	col, row := noteCell(t, m, "n1")
	m, _ = mouse(m, col, row, tea.MouseActionPress, tea.MouseButtonLeft)
	m, _ = mouse(m, col+10, row+4, tea.MouseActionMotion, tea.MouseButtonLeft)
	m, cmd := mouse(m, col+10, row+4, tea.MouseActionRelease, tea.MouseButtonNone)
	if cmd != nil {
		t.Fatalf("locked drag issued a request")
	}
	if n, _ := m.state.Registry.Get("n1"); n.X != 1550 || n.Y != 850 {
		t.Fatalf("locked drag moved the note to (%v, %v)", n.X, n.Y)
	}
	if !strings.Contains(xansi.Strip(m.View()), "locked") {
		t.Fatalf("header should show the lock")
	}
}

func TestWheel_ZoomsInSteps(t *testing.T) {
	m, _ := newTestModel(t, false)
	before := m.state.Viewport.Scale()
	m, _ = mouse(m, 10, 10, tea.MouseActionPress, tea.MouseButtonWheelUp)
	if got := m.state.Viewport.Scale(); got-before < viewport.ZoomStep-1e-9 || got-before > viewport.ZoomStep+1e-9 {
		t.Fatalf("expected one zoom step, %v -> %v", before, got)
	}
	m, _ = mouse(m, 10, 10, tea.MouseActionPress, tea.MouseButtonWheelDown)
	if got := m.state.Viewport.Scale(); got < before-1e-9 || got > before+1e-9 {
		t.Fatalf("expected zoom back to %v, got %v", before, got)
	}
}

func TestNoteForm_CreatesNote(t *testing.T) {
	m, db := newTestModel(t, false)
	m, _ = key(m, "n")
	if m.mode != modeNoteForm {
		t.Fatalf("expected note form")
	}
	m, _ = key(m, "Slay the dragon")
	m, cmd := key(m, "enter")
	if m.mode != modeBoard {
		t.Fatalf("form still open after submit")
	}
	m = drain(t, m, cmd)

	snap, err := db.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(snap.Notes))
	}
	n := snap.Notes[1]
	if n.Text != "Slay the dragon" || n.Tag != "Quest" || n.Assignee != "Dragonborn" {
		t.Fatalf("unexpected note %+v", n)
	}
	if m.focus != n.ID {
		t.Fatalf("expected focus on the new note, got %q", m.focus)
	}
}

func TestNoteForm_EmptyTextIsSkipped(t *testing.T) {
	m, db := newTestModel(t, false)
	m, _ = key(m, "n")
	m, cmd := key(m, "enter")
	if cmd != nil {
		t.Fatalf("an empty draft must not issue a request")
	}
	m = drain(t, m, cmd)
	snap, _ := db.FetchSnapshot(context.Background())
	if len(snap.Notes) != 1 || m.state.Registry.Len() != 1 {
		t.Fatalf("empty draft created a note")
	}
}

func TestConfirm_DeclineKeepsNote(t *testing.T) {
	m, _ := newTestModel(t, false)
	m, _ = key(m, "tab")
	if m.focus != "n1" {
		t.Fatalf("tab should focus the only note, got %q", m.focus)
	}
	m, _ = key(m, "x")
	if m.mode != modeConfirm {
		t.Fatalf("expected confirmation")
	}
	if !strings.Contains(xansi.Strip(m.View()), "abandon this quest") {
		t.Fatalf("confirmation prompt not shown")
	}
	m, cmd := key(m, "n")
	if cmd != nil || m.mode != modeBoard {
		t.Fatalf("declining should close the modal without a request")
	}
	if _, ok := m.state.Registry.Get("n1"); !ok {
		t.Fatalf("declining deleted the note")
	}

	m, _ = key(m, "x")
	m, cmd = key(m, "y")
	m = drain(t, m, cmd)
	if _, ok := m.state.Registry.Get("n1"); ok {
		t.Fatalf("confirmed delete left the note")
	}
	if m.focus != "" {
		t.Fatalf("focus should clear with the deleted note")
	}
}

func TestHeader_ShowsZoomPercent(t *testing.T) {
	m, _ := newTestModel(t, false)
	if v := xansi.Strip(m.View()); !strings.Contains(v, "31%") {
		t.Fatalf("expected 31%% zoom in header:\n%s", strings.SplitN(v, "\n", 2)[0])
	}
	m, _ = key(m, "+")
	if v := xansi.Strip(m.View()); !strings.Contains(v, "41%") {
		t.Fatalf("expected 41%% after zooming in")
	}
}

func TestTagPrompt_AddsTag(t *testing.T) {
	m, db := newTestModel(t, false)
	m, _ = key(m, "t")
	m, _ = key(m, "Alchemy")
	m, cmd := key(m, "enter")
	m = drain(t, m, cmd)
	snap, _ := db.FetchSnapshot(context.Background())
	if _, ok := snap.FindTag("Alchemy"); !ok {
		t.Fatalf("tag not stored: %+v", snap.Tags)
	}
	if m.state.TagColor("Alchemy") == model.FallbackTagColor {
		t.Fatalf("new tag should carry its own colour")
	}
}

func TestDrag_OpeningPromptMidGestureAbandonsIt(t *testing.T) {
	m, db := newTestModel(t, false)
	col, row := noteCell(t, m, "n1")
	m, _ = mouse(m, col, row, tea.MouseActionPress, tea.MouseButtonLeft)
	m, _ = mouse(m, col+10, row+2, tea.MouseActionMotion, tea.MouseButtonLeft)

	m, _ = key(m, "t")
	if m.mode != modePrompt {
		t.Fatalf("expected the tag prompt, got mode=%v", m.mode)
	}
	if m.state.Drag.Active() {
		t.Fatalf("opening a prompt must end the drag")
	}
	m, cmd := mouse(m, col+10, row+2, tea.MouseActionRelease, tea.MouseButtonNone)
	if cmd != nil {
		t.Fatalf("release under the prompt issued a request")
	}
	m, _ = key(m, "esc")
	m, cmd = mouse(m, col+40, row+10, tea.MouseActionMotion, tea.MouseButtonNone)
	if cmd != nil {
		t.Fatalf("hover issued a request")
	}
	if n, _ := m.state.Registry.Get("n1"); n.X != 1550 || n.Y != 850 {
		t.Fatalf("abandoned drag moved the note to (%v, %v)", n.X, n.Y)
	}
	if len(m.state.Registry.Pending()) != 0 {
		t.Fatalf("abandoned drag left pending mutations: %v", m.state.Registry.Pending())
	}

	m, _ = mouse(m, col, row, tea.MouseActionPress, tea.MouseButtonLeft)
	if !m.state.Drag.Active() || m.state.Drag.NoteID() != "n1" {
		t.Fatalf("a new press after the prompt should start a session")
	}
	m, cmd = mouse(m, col+5, row, tea.MouseActionRelease, tea.MouseButtonNone)
	m = drain(t, m, cmd)
	snap, _ := db.FetchSnapshot(context.Background())
	if snap.Notes[0].X == 1550 {
		t.Fatalf("drag after the prompt was not stored")
	}
}

func TestDrag_HoverWithoutButtonEndsLostGesture(t *testing.T) {
	m, _ := newTestModel(t, false)
	col, row := noteCell(t, m, "n1")
	m, _ = mouse(m, col, row, tea.MouseActionPress, tea.MouseButtonLeft)
	m, _ = mouse(m, col+10, row, tea.MouseActionMotion, tea.MouseButtonLeft)
	m, cmd := mouse(m, col+20, row, tea.MouseActionMotion, tea.MouseButtonNone)
	if cmd != nil {
		t.Fatalf("hover issued a request")
	}
	if m.state.Drag.Active() {
		t.Fatalf("expected the gesture to be dropped")
	}
	if n, _ := m.state.Registry.Get("n1"); n.X != 1550 || n.Y != 850 {
		t.Fatalf("lost gesture moved the note to (%v, %v)", n.X, n.Y)
	}
}
