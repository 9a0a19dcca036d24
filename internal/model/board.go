package model

import (
	"encoding/json"
	"strings"
)

// Board geometry, in board units.
const (
	BoardWidth  = 3200.0
	BoardHeight = 1800.0

	// NoteWidth/NoteHeight are the footprint of a rendered card. Hit testing and
	// new-note placement both use it.
	NoteWidth  = 180.0
	NoteHeight = 180.0
)

const (
	// FallbackTagColor is used for notes whose tag no longer exists.
	FallbackTagColor = "#800000"
	DefaultAssignee  = "Anonymous"
	// FilterAll is the filter sentinel that shows every note.
	FilterAll = "all"
)

type Note struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Tag      string  `json:"tag"`
	Assignee string  `json:"assignee"`
	Date     string  `json:"date"`
	Image    *string `json:"image"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// HasImage reports whether the note carries an attached sketch.
func (n Note) HasImage() bool {
	return n.Image != nil && strings.TrimSpace(*n.Image) != ""
}

// Contains reports whether the board point (x, y) falls inside the note's card.
// Rotation is ignored; notes are tilted by a few degrees at most.
func (n Note) Contains(x, y float64) bool {
	return x >= n.X && x < n.X+NoteWidth && y >= n.Y && y < n.Y+NoteHeight
}

type Tag struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Player is a name offered as an assignee suggestion.
// On the wire a player is encoded as a bare string.
type Player struct {
	Name string
}

func (p Player) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Name)
}

func (p *Player) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.Name = s
		return nil
	}
	// Accept {"name": "..."} too, which is what clients POST.
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	p.Name = obj.Name
	return nil
}

// Snapshot is a full, consistent copy of the shared board state.
type Snapshot struct {
	Notes   []Note   `json:"notes"`
	Tags    []Tag    `json:"tags"`
	Players []Player `json:"players"`
	Locked  bool     `json:"locked"`
}

// Clone returns a deep copy so callers can hand snapshots across goroutines.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Locked: s.Locked}
	if s.Notes != nil {
		out.Notes = make([]Note, len(s.Notes))
		for i, n := range s.Notes {
			if n.Image != nil {
				img := *n.Image
				n.Image = &img
			}
			out.Notes[i] = n
		}
	}
	if s.Tags != nil {
		out.Tags = append([]Tag(nil), s.Tags...)
	}
	if s.Players != nil {
		out.Players = append([]Player(nil), s.Players...)
	}
	return out
}

// FindTag returns the tag with the given name.
func (s Snapshot) FindTag(name string) (Tag, bool) {
	for _, t := range s.Tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}
