package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"questboard/internal/board"
	"questboard/internal/model"
	"questboard/internal/viewport"
)

// One terminal cell covers cellW x cellH screen units. The click threshold
// (5 units) is therefore smaller than one cell in either direction.
const (
	cellW = 8.0
	cellH = 16.0
)

// cellToScreen maps a board-area cell to the screen point at its centre.
func cellToScreen(col, row int) viewport.Point {
	return viewport.Point{X: float64(col)*cellW + cellW/2, Y: float64(row)*cellH + cellH/2}
}

func screenToCell(p viewport.Point) (col, row int) {
	return int(math.Floor(p.X / cellW)), int(math.Floor(p.Y / cellH))
}

type cell struct {
	r     rune
	style int
}

// canvas is a fixed grid of styled runes. Styles are interned so a row can
// be rendered as runs of equal style.
type canvas struct {
	w, h   int
	cells  []cell
	styles []lipgloss.Style
}

func newCanvas(w, h int) *canvas {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	c := &canvas{w: w, h: h, cells: make([]cell, w*h), styles: []lipgloss.Style{lipgloss.NewStyle()}}
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
	return c
}

func (c *canvas) style(st lipgloss.Style) int {
	c.styles = append(c.styles, st)
	return len(c.styles) - 1
}

func (c *canvas) set(col, row int, r rune, style int) {
	if col < 0 || row < 0 || col >= c.w || row >= c.h {
		return
	}
	c.cells[row*c.w+col] = cell{r: r, style: style}
}

func (c *canvas) text(col, row int, s string, style int) {
	for _, r := range s {
		c.set(col, row, r, style)
		col++
	}
}

func (c *canvas) fill(x0, y0, x1, y1 int, r rune, style int) {
	for row := y0; row < y1; row++ {
		for col := x0; col < x1; col++ {
			c.set(col, row, r, style)
		}
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.h; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for col := 1; col <= c.w; col++ {
			if col < c.w && c.cells[row*c.w+col].style == c.cells[row*c.w+start].style {
				continue
			}
			var run strings.Builder
			for i := start; i < col; i++ {
				run.WriteRune(c.cells[row*c.w+i].r)
			}
			b.WriteString(c.styles[c.cells[row*c.w+start].style].Render(run.String()))
			start = col
		}
	}
	return b.String()
}

// cardRect is a note's on-screen footprint in cells, unclipped.
type cardRect struct {
	x0, y0, x1, y1 int
}

func noteRect(vp *viewport.Viewport, n model.Note) cardRect {
	tl := vp.BoardToScreen(viewport.Point{X: n.X, Y: n.Y})
	br := vp.BoardToScreen(viewport.Point{X: n.X + model.NoteWidth, Y: n.Y + model.NoteHeight})
	r := cardRect{
		x0: int(math.Floor(tl.X / cellW)),
		y0: int(math.Floor(tl.Y / cellH)),
		x1: int(math.Ceil(br.X / cellW)),
		y1: int(math.Ceil(br.Y / cellH)),
	}
	// Keep every card at least a label wide and two rows high.
	if r.x1-r.x0 < 3 {
		r.x1 = r.x0 + 3
	}
	if r.y1-r.y0 < 2 {
		r.y1 = r.y0 + 2
	}
	return r
}

// drawBoard paints the parchment area and every visible note in stacking
// order onto a w x h canvas.
func drawBoard(s *board.State, w, h int, focus string) *canvas {
	c := newCanvas(w, h)
	bg := c.style(lipgloss.NewStyle().Background(colorBoardBg).Foreground(colorBoardDot))

	tl := s.Viewport.BoardToScreen(viewport.Point{})
	br := s.Viewport.BoardToScreen(viewport.Point{X: model.BoardWidth, Y: model.BoardHeight})
	bx0, by0 := screenToCell(tl)
	bx1, by1 := screenToCell(br)
	c.fill(bx0, by0, bx1, by1, ' ', bg)
	// Grid dots every 200 board units help with orientation while panning.
	for gx := 200.0; gx < model.BoardWidth; gx += 200 {
		for gy := 200.0; gy < model.BoardHeight; gy += 200 {
			col, row := screenToCell(s.Viewport.BoardToScreen(viewport.Point{X: gx, Y: gy}))
			c.set(col, row, '·', bg)
		}
	}

	dragging, _ := s.Registry.Dragging()
	for _, n := range s.StackedNotes() {
		drawCard(c, s, n, n.ID == focus, n.ID == dragging)
	}
	return c
}

func drawCard(c *canvas, s *board.State, n model.Note, focused, dragging bool) {
	r := noteRect(s.Viewport, n)
	tag := tagColor(s.TagColor(n.Tag))

	body := c.style(lipgloss.NewStyle().Background(colorCardBg).Foreground(colorCardFg))
	edgeStyle := lipgloss.NewStyle().Background(colorCardBg).Foreground(tag)
	if focused || dragging {
		edgeStyle = edgeStyle.Bold(true)
	}
	edge := c.style(edgeStyle)
	label := c.style(lipgloss.NewStyle().Background(tag).Foreground(lipgloss.Color("#ffffff")).Bold(true))

	c.fill(r.x0, r.y0, r.x1, r.y1, ' ', body)
	horiz, vert := '─', '│'
	if focused || dragging {
		horiz, vert = '═', '║'
	}
	for col := r.x0; col < r.x1; col++ {
		c.set(col, r.y1-1, horiz, edge)
	}
	for row := r.y0; row < r.y1; row++ {
		c.set(r.x0, row, vert, edge)
		c.set(r.x1-1, row, vert, edge)
	}

	inner := r.x1 - r.x0 - 2
	if inner <= 0 {
		return
	}
	// Top row: tag label.
	c.fill(r.x0, r.y0, r.x1, r.y0+1, ' ', label)
	c.text(r.x0+1, r.y0, xansi.Truncate(n.Tag, inner, "…"), label)

	rows := r.y1 - r.y0 - 2
	if rows <= 0 {
		return
	}
	text := n.Text
	if n.HasImage() {
		text = "✎ " + text
	}
	lines := strings.Split(xansi.Wordwrap(text, inner, " "), "\n")
	footer := ""
	if rows >= 3 {
		footer = xansi.Truncate(n.Assignee+" · "+n.Date, inner, "…")
		rows--
	}
	for i := 0; i < rows && i < len(lines); i++ {
		line := lines[i]
		if i == rows-1 && len(lines) > rows {
			line = xansi.Truncate(line+"…", inner, "…")
		}
		c.text(r.x0+1, r.y0+1+i, xansi.Truncate(line, inner, ""), body)
	}
	if footer != "" {
		c.text(r.x0+1, r.y1-2, footer, c.style(styleMuted().Background(colorCardBg)))
	}
}
