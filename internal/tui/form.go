package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"questboard/internal/board"
)

type formField int

const (
	fieldText formField = iota
	fieldTag
	fieldAssignee
	fieldImage
	fieldCount
)

// noteForm collects a NoteDraft. The tag is picked from the known tags;
// the assignee offers player suggestions.
type noteForm struct {
	text     textinput.Model
	assignee textinput.Model
	image    textinput.Model
	tags     []string
	tagIdx   int
	focus    formField
	suggest  int
}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Prompt = ""
	return in
}

func newNoteForm(tags []string, player string, preferTag string) *noteForm {
	f := &noteForm{
		text:     newInput("What needs doing?", 500),
		assignee: newInput("Anonymous", 60),
		image:    newInput("optional path to a sketch", 1024),
		tags:     tags,
	}
	f.assignee.SetValue(player)
	for i, t := range tags {
		if t == preferTag {
			f.tagIdx = i
		}
	}
	f.setFocus(fieldText)
	return f
}

func (f *noteForm) setFocus(field formField) {
	f.focus = (field + fieldCount) % fieldCount
	f.text.Blur()
	f.assignee.Blur()
	f.image.Blur()
	switch f.focus {
	case fieldText:
		f.text.Focus()
	case fieldAssignee:
		f.assignee.Focus()
	case fieldImage:
		f.image.Focus()
	}
}

func (f *noteForm) tag() string {
	if len(f.tags) == 0 {
		return ""
	}
	return f.tags[f.tagIdx]
}

func (f *noteForm) draft() board.NoteDraft {
	return board.NoteDraft{Text: f.text.Value(), Tag: f.tag(), Assignee: f.assignee.Value()}
}

// update handles a key for the focused field. It reports whether the form
// was submitted or cancelled.
func (f *noteForm) update(msg tea.KeyMsg, suggestions func(string) []string) (submit, cancel bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		return false, true, nil
	case "enter", "ctrl+s":
		return true, false, nil
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return false, false, nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return false, false, nil
	}
	switch f.focus {
	case fieldText:
		f.text, cmd = f.text.Update(msg)
	case fieldTag:
		switch msg.String() {
		case "left", "h":
			if len(f.tags) > 0 {
				f.tagIdx = (f.tagIdx - 1 + len(f.tags)) % len(f.tags)
			}
		case "right", "l", " ":
			if len(f.tags) > 0 {
				f.tagIdx = (f.tagIdx + 1) % len(f.tags)
			}
		}
	case fieldAssignee:
		if msg.String() == "ctrl+n" {
			if opts := suggestions(f.assignee.Value()); len(opts) > 0 {
				f.assignee.SetValue(opts[f.suggest%len(opts)])
				f.assignee.CursorEnd()
				f.suggest++
			}
			return false, false, nil
		}
		f.suggest = 0
		f.assignee, cmd = f.assignee.Update(msg)
	case fieldImage:
		f.image, cmd = f.image.Update(msg)
	}
	return false, false, cmd
}

func (f *noteForm) view(width int, suggestions []string) string {
	bodyW := modalBodyWidth(width) - 4
	label := func(field formField, s string) string {
		st := lipgloss.NewStyle().Width(10)
		if f.focus == field {
			st = st.Foreground(colorAccent).Bold(true)
		} else {
			st = st.Foreground(colorMuted)
		}
		return st.Render(s)
	}
	f.text.Width = bodyW - 11
	f.assignee.Width = bodyW - 11
	f.image.Width = bodyW - 11

	var tagView string
	if len(f.tags) == 0 {
		tagView = styleMuted().Render("no tags yet; press t on the board to add one")
	} else {
		tagView = "‹ " + f.tag() + " ›"
	}
	lines := []string{
		label(fieldText, "Quest") + f.text.View(),
		label(fieldTag, "Tag") + tagView,
		label(fieldAssignee, "Assignee") + f.assignee.View(),
	}
	if f.focus == fieldAssignee && len(suggestions) > 0 {
		lines = append(lines, strings.Repeat(" ", 10)+styleMuted().Render("ctrl+n: "+strings.Join(suggestions, ", ")))
	}
	lines = append(lines,
		label(fieldImage, "Sketch")+f.image.View(),
		"",
		styleMuted().Render("tab: next field   ←/→: tag   enter: post   esc: cancel"),
	)
	return renderModalBox(width, "Post a new quest", strings.Join(lines, "\n"))
}

// prompt is a single-line input modal (new tag, new player).
type prompt struct {
	title string
	kind  promptKind
	input textinput.Model
}

type promptKind int

const (
	promptTag promptKind = iota
	promptPlayer
)

func newPrompt(kind promptKind) *prompt {
	p := &prompt{kind: kind}
	switch kind {
	case promptTag:
		p.title = "New tag"
		p.input = newInput("e.g. Alchemy", 40)
	case promptPlayer:
		p.title = "New player"
		p.input = newInput("e.g. Lydia", 60)
	}
	p.input.Focus()
	return p
}

func (p *prompt) view(width int) string {
	p.input.Width = modalBodyWidth(width) - 4
	return renderModalBox(width, p.title, p.input.View()+"\n\n"+styleMuted().Render("enter: save   esc: cancel"))
}
