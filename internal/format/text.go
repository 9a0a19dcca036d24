package format

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"questboard/internal/model"
)

// Table is implemented by values with a tabular text form.
type Table interface {
	Header() []string
	Rows() [][]string
}

// WriteText renders a Table with borders, or falls back to fmt.
func WriteText(w io.Writer, v any) error {
	switch t := v.(type) {
	case Table:
		tbl := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(t.Header()...).
			Rows(t.Rows()...)
		_, err := fmt.Fprintln(w, tbl.Render())
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(w, t.String())
		return err
	default:
		_, err := fmt.Fprintln(w, v)
		return err
	}
}

// Notes is a note list with a text form.
type Notes []model.Note

func (Notes) Header() []string {
	return []string{"ID", "TAG", "ASSIGNEE", "DATE", "X", "Y", "TEXT"}
}

func (ns Notes) Rows() [][]string {
	out := make([][]string, 0, len(ns))
	for _, n := range ns {
		text := n.Text
		if n.HasImage() {
			text += " [sketch]"
		}
		out = append(out, []string{n.ID, n.Tag, n.Assignee, n.Date, coord(n.X), coord(n.Y), text})
	}
	return out
}

type Tags []model.Tag

func (Tags) Header() []string { return []string{"NAME", "COLOR"} }

func (ts Tags) Rows() [][]string {
	out := make([][]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, []string{t.Name, t.Color})
	}
	return out
}

type Players []model.Player

func (Players) Header() []string { return []string{"NAME"} }

func (ps Players) Rows() [][]string {
	out := make([][]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, []string{p.Name})
	}
	return out
}

// Summary is the text form of a whole snapshot.
type Summary struct {
	model.Snapshot
}

func (s Summary) Header() []string { return []string{"NOTES", "TAGS", "PLAYERS", "LOCKED"} }

func (s Summary) Rows() [][]string {
	return [][]string{{
		strconv.Itoa(len(s.Notes)),
		strconv.Itoa(len(s.Tags)),
		strconv.Itoa(len(s.Players)),
		strconv.FormatBool(s.Locked),
	}}
}

func coord(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
