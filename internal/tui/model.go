package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"questboard/internal/board"
	"questboard/internal/boardsync"
	"questboard/internal/model"
	"questboard/internal/viewport"
)

// Options configure one interactive board session.
type Options struct {
	Store      boardsync.Store
	Reconciler boardsync.Reconciler
	Logger     log.FieldLogger
	// Player prefills the assignee of new notes.
	Player string
	Title  string
}

type mode int

const (
	modeBoard mode = iota
	modeDetail
	modeNoteForm
	modePrompt
	modeConfirm
)

// keyPanStep and keyMoveStep are in screen and board units respectively.
const (
	keyPanStep  = 4 * cellW
	keyMoveStep = 20.0
)

type resultMsg struct{ res boardsync.Result }

type pollMsg struct{ err error }

type boardModel struct {
	ctx   context.Context
	store boardsync.Store
	rec   boardsync.Reconciler
	sync  *boardsync.Synchronizer
	state *board.State
	log   log.FieldLogger

	title  string
	player string

	width  int
	height int
	sized  bool

	mode         mode
	focus        string
	detailID     string
	form         *noteForm
	prompt       *prompt
	confirmFocus confirmFocus
	status       string
}

func newBoardModel(ctx context.Context, opts Options) boardModel {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	rec := opts.Reconciler
	if rec == nil {
		rec = boardsync.NewPollReconciler(boardsync.RealClock{}, boardsync.DefaultPollInterval)
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Quest Board"
	}
	st := board.NewState(model.BoardWidth, model.BoardHeight)
	return boardModel{
		ctx:    ctx,
		store:  opts.Store,
		rec:    rec,
		sync:   boardsync.NewSynchronizer(st, boardsync.WithLogger(logger)),
		state:  st,
		log:    logger,
		title:  title,
		player: strings.TrimSpace(opts.Player),
	}
}

func (m boardModel) Init() tea.Cmd {
	return tea.Batch(m.do(m.sync.Bootstrap()...), m.waitPoll())
}

// do runs requests off the update loop; each reports back as a resultMsg.
func (m boardModel) do(reqs ...boardsync.Request) tea.Cmd {
	if len(reqs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		req := req
		cmds = append(cmds, func() tea.Msg {
			return resultMsg{res: req.Do(m.ctx, m.store)}
		})
	}
	return tea.Batch(cmds...)
}

func (m boardModel) waitPoll() tea.Cmd {
	return func() tea.Msg {
		return pollMsg{err: m.rec.Next(m.ctx)}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.surfaceSize()
		if !m.sized {
			m.sized = true
			m.state.Viewport.FitToViewport(w, h)
		} else {
			m.state.Viewport.Resize(w, h)
		}
		return m, nil

	case resultMsg:
		next := m.sync.Complete(msg.res)
		if msg.res.Err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.res.Request.Op, msg.res.Err)
		}
		m.dropStaleFocus()
		return m, m.do(next...)

	case pollMsg:
		if msg.err != nil {
			return m, nil
		}
		return m, tea.Batch(m.do(m.sync.Refresh()), m.waitPoll())

	case tea.MouseMsg:
		if m.mode != modeBoard {
			return m, nil
		}
		return m.updateMouse(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeDetail:
			return m.updateDetail(msg)
		case modeNoteForm:
			return m.updateNoteForm(msg)
		case modePrompt:
			return m.updatePrompt(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateBoard(msg)
		}
	}
	return m, nil
}

// surfaceSize is the board area in screen units: every row except the header
// and footer.
func (m boardModel) surfaceSize() (float64, float64) {
	rows := m.height - 2
	if rows < 1 {
		rows = 1
	}
	return float64(m.width) * cellW, float64(rows) * cellH
}

func mouseToScreen(msg tea.MouseMsg) viewport.Point {
	return cellToScreen(msg.X, msg.Y-1)
}

func (m boardModel) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	drag := m.state.Drag
	p := mouseToScreen(msg)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.state.Viewport.ZoomBy(viewport.ZoomStep)
		return m, nil
	case msg.Button == tea.MouseButtonWheelDown:
		m.state.Viewport.ZoomBy(-viewport.ZoomStep)
		return m, nil
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if msg.Y < 1 || msg.Y > m.height-2 {
			return m, nil
		}
		if _, err := drag.PointerDown(p); err != nil {
			if errors.Is(err, board.ErrSessionActive) {
				return m, nil
			}
			m.status = err.Error()
			return m, nil
		}
		if id := drag.NoteID(); id != "" {
			m.focus = id
		}
		return m, nil
	case msg.Action == tea.MouseActionMotion:
		if !drag.Active() {
			return m, nil
		}
		// Motion with no button held means the release was never seen.
		if msg.Button == tea.MouseButtonNone {
			drag.Cancel()
			return m, nil
		}
		drag.PointerMove(p)
		return m, nil
	case msg.Action == tea.MouseActionRelease:
		if !drag.Active() {
			return m, nil
		}
		out := drag.PointerUp(p)
		switch out.Kind {
		case board.OutcomeClick:
			m.focus = out.NoteID
			m.openDetail(out.NoteID)
		case board.OutcomeDragEnd:
			if req, ok := m.sync.CommitDrag(out); ok {
				return m, m.do(req)
			}
		}
		return m, nil
	}
	return m, nil
}

func (m boardModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	vp := m.state.Viewport
	m.status = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.state.Drag.Cancel()
		m.focus = ""
	case "+", "=":
		vp.ZoomBy(viewport.ZoomStep)
	case "-", "_":
		vp.ZoomBy(-viewport.ZoomStep)
	case "0":
		w, h := m.surfaceSize()
		vp.FitToViewport(w, h)
	case "left", "h":
		vp.PanBy(keyPanStep, 0)
	case "right", "l":
		vp.PanBy(-keyPanStep, 0)
	case "up", "k":
		vp.PanBy(0, keyPanStep)
	case "down", "j":
		vp.PanBy(0, -keyPanStep)
	case "shift+left", "H":
		return m.moveFocused(-keyMoveStep, 0)
	case "shift+right", "L":
		return m.moveFocused(keyMoveStep, 0)
	case "shift+up", "K":
		return m.moveFocused(0, -keyMoveStep)
	case "shift+down", "J":
		return m.moveFocused(0, keyMoveStep)
	case "tab":
		m.cycleFocus(1)
	case "shift+tab":
		m.cycleFocus(-1)
	case "enter":
		if m.focus != "" {
			m.openDetail(m.focus)
		}
	case "n":
		pref := m.state.Filter.Selected()
		m.form = newNoteForm(tagNames(m.state.Tags()), m.player, pref)
		m.setMode(modeNoteForm)
	case "t":
		m.prompt = newPrompt(promptTag)
		m.setMode(modePrompt)
	case "p":
		m.prompt = newPrompt(promptPlayer)
		m.setMode(modePrompt)
	case "f":
		m.cycleFilter()
	case "F":
		m.state.SetFilter(model.FilterAll)
	case "T":
		sel := m.state.Filter.Selected()
		if sel == model.FilterAll {
			m.status = "select a tag with f first"
			return m, nil
		}
		m.requestConfirm(board.ConfirmDeleteTag, sel)
	case "x", "delete":
		if m.focus == "" {
			m.status = "no note selected"
			return m, nil
		}
		m.requestConfirm(board.ConfirmDeleteNote, m.focus)
	case "o":
		return m, m.do(m.sync.SetLock(!m.state.Locked()))
	case "r":
		return m, m.do(m.sync.Refresh())
	}
	return m, nil
}

func (m *boardModel) moveFocused(dx, dy float64) (tea.Model, tea.Cmd) {
	n, ok := m.state.Registry.Get(m.focus)
	if !ok {
		return *m, nil
	}
	req, err := m.sync.MoveNote(n.ID, n.X+dx, n.Y+dy)
	if err != nil {
		m.status = err.Error()
		return *m, nil
	}
	m.state.Stack.Raise(n.ID)
	return *m, m.do(req)
}

func (m *boardModel) cycleFocus(dir int) {
	notes := m.state.StackedNotes()
	if len(notes) == 0 {
		m.focus = ""
		return
	}
	idx := -1
	for i, n := range notes {
		if n.ID == m.focus {
			idx = i
		}
	}
	if idx < 0 {
		if dir > 0 {
			idx = len(notes) - 1
		} else {
			idx = 0
		}
	}
	idx = (idx + dir + len(notes)) % len(notes)
	m.focus = notes[idx].ID
	m.centerOn(notes[idx])
}

// centerOn pans so the note's centre sits in the middle of the surface.
func (m *boardModel) centerOn(n model.Note) {
	vp := m.state.Viewport
	w, h := vp.Size()
	s := vp.BoardToScreen(viewport.Point{X: n.X + model.NoteWidth/2, Y: n.Y + model.NoteHeight/2})
	vp.PanBy(w/2-s.X, h/2-s.Y)
}

func (m *boardModel) cycleFilter() {
	opts := m.state.FilterOptions()
	cur := m.state.Filter.Selected()
	next := opts[0]
	for i, o := range opts {
		if o == cur {
			next = opts[(i+1)%len(opts)]
		}
	}
	m.state.SetFilter(next)
	m.dropStaleFocus()
}

func (m *boardModel) dropStaleFocus() {
	if m.focus != "" && !m.state.Filter.Visible(m.focus) {
		m.focus = ""
	}
	if m.mode == modeDetail {
		if _, ok := m.state.Registry.Get(m.detailID); !ok {
			m.mode = modeBoard
			m.detailID = ""
		}
	}
}

// setMode switches the interaction mode. Any mode other than the board takes
// the keyboard and mouse, so a gesture in progress is abandoned.
func (m *boardModel) setMode(next mode) {
	if next != modeBoard {
		m.state.Drag.Cancel()
	}
	m.mode = next
}

func (m *boardModel) openDetail(id string) {
	if _, ok := m.state.Registry.Get(id); !ok {
		return
	}
	m.detailID = id
	m.setMode(modeDetail)
}

func (m *boardModel) requestConfirm(kind board.ConfirmKind, target string) {
	if _, err := m.state.RequestConfirm(kind, target); err != nil {
		m.status = err.Error()
		return
	}
	m.confirmFocus = confirmFocusCancel
	m.setMode(modeConfirm)
}

func (m boardModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "q":
		m.mode = modeBoard
		m.detailID = ""
	case "x", "delete":
		id := m.detailID
		m.mode = modeBoard
		m.detailID = ""
		m.requestConfirm(board.ConfirmDeleteNote, id)
	}
	return m, nil
}

func (m boardModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	yes, decided := false, false
	switch msg.String() {
	case "y", "Y":
		yes, decided = true, true
	case "n", "N", "esc", "q":
		decided = true
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.confirmFocus == confirmFocusCancel {
			m.confirmFocus = confirmFocusConfirm
		} else {
			m.confirmFocus = confirmFocusCancel
		}
	case "enter":
		yes, decided = m.confirmFocus == confirmFocusConfirm, true
	}
	if !decided {
		return m, nil
	}
	m.mode = modeBoard
	req, ok, err := m.sync.Confirm(yes)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	if !ok {
		return m, nil
	}
	if req.Op == boardsync.OpDeleteNote && req.Name == m.focus {
		m.focus = ""
	}
	if req.Op == boardsync.OpDeleteTag && m.state.Filter.Selected() == req.Name {
		m.state.SetFilter(model.FilterAll)
	}
	return m, m.do(req)
}

func (m boardModel) updateNoteForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	submit, cancel, cmd := m.form.update(msg, m.state.PlayerSuggestions)
	if cancel {
		m.form = nil
		m.mode = modeBoard
		return m, nil
	}
	if !submit {
		return m, cmd
	}
	d := m.form.draft()
	if path := strings.TrimSpace(m.form.image.Value()); path != "" {
		uri, err := board.LoadSketch(path)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		d.Image = &uri
	}
	m.form = nil
	m.mode = modeBoard
	n, req, ok := m.sync.CreateNote(d)
	if !ok {
		return m, nil
	}
	m.focus = n.ID
	m.state.Stack.Raise(n.ID)
	return m, m.do(req)
}

func (m boardModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompt = nil
		m.mode = modeBoard
		return m, nil
	case "enter":
		kind, value := m.prompt.kind, m.prompt.input.Value()
		m.prompt = nil
		m.mode = modeBoard
		switch kind {
		case promptTag:
			if _, req, ok := m.sync.AddTag(value); ok {
				return m, m.do(req)
			}
		case promptPlayer:
			if req, ok := m.sync.AddPlayer(value); ok {
				return m, m.do(req)
			}
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)
	return m, cmd
}

func tagNames(tags []model.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Name)
	}
	return out
}

func (m boardModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	header := m.headerView()
	footer := m.footerView()
	rows := m.height - 2
	if rows < 1 {
		rows = 1
	}
	body := drawBoard(m.state, m.width, rows, m.focus).String()

	var overlay string
	switch m.mode {
	case modeDetail:
		overlay = m.detailView()
	case modeNoteForm:
		overlay = m.form.view(m.width, m.state.PlayerSuggestions(m.form.assignee.Value()))
	case modePrompt:
		overlay = m.prompt.view(m.width)
	case modeConfirm:
		if c, ok := m.state.PendingConfirm(); ok {
			overlay = renderConfirmModal(m.width, "Confirm", c.Prompt, "Yes", "No", m.confirmFocus)
		}
	}
	if overlay != "" {
		body = lipgloss.Place(m.width, rows, lipgloss.Center, lipgloss.Center, overlay,
			lipgloss.WithWhitespaceBackground(colorBoardBg))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m boardModel) headerView() string {
	bar := lipgloss.NewStyle().Width(m.width).Foreground(colorSurfaceFg).Background(colorControlBg)
	parts := []string{
		lipgloss.NewStyle().Bold(true).Render(m.title),
		fmt.Sprintf("%d%%", m.state.Viewport.ZoomPercent()),
		"filter: " + m.state.Filter.Selected(),
	}
	if m.state.Locked() {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorLocked).Bold(true).Render("locked"))
	}
	if n := len(m.state.Registry.Pending()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", n))
	}
	if st := m.sync.Stats(); st.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", st.Failed))
	}
	return bar.Render(" " + strings.Join(parts, "  ·  "))
}

func (m boardModel) footerView() string {
	text := m.status
	if text == "" {
		switch m.mode {
		case modeBoard:
			text = "drag: move  click: open  wheel/+/-: zoom  0: fit  n: new  f: filter  o: lock  x: abandon  q: quit"
		case modeDetail:
			text = "esc: close  x: abandon"
		}
	}
	return styleMuted().Width(m.width).Render(" " + text)
}

func (m boardModel) detailView() string {
	n, ok := m.state.Registry.Get(m.detailID)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(n.Text)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Tag:** %s  \n**Assignee:** %s  \n**Posted:** %s\n", n.Tag, n.Assignee, n.Date)
	if n.HasImage() {
		fmt.Fprintf(&b, "\n_Sketch attached (%d bytes)_\n", len(*n.Image))
	}
	body := renderMarkdown(b.String(), modalBodyWidth(m.width)-4)
	title := lipgloss.NewStyle().Foreground(tagColor(m.state.TagColor(n.Tag))).Render("■ ") + "Quest"
	return renderModalBox(m.width, title, body)
}
