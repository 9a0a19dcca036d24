package board

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"questboard/internal/model"
)

// DateLayout is how a note's creation date is displayed ("Jan 2, 2006").
const DateLayout = "Jan 2, 2006"

// IDSource issues note ids from a millisecond clock. Ids are strictly
// increasing within one source even when the clock stalls or steps back.
type IDSource struct {
	now  func() time.Time
	last int64
}

func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

func (g *IDSource) Next() string {
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// NoteDraft is the user input for a new note.
type NoteDraft struct {
	Text     string
	Tag      string
	Assignee string
	Image    *string
}

// NewNote builds a note from a draft. Drafts without text or tag produce no
// note (ok=false). New notes land near the board centre with a small random
// jitter and tilt.
func NewNote(d NoteDraft, id string, now time.Time, rng *rand.Rand) (model.Note, bool) {
	text := strings.TrimSpace(d.Text)
	tag := strings.TrimSpace(d.Tag)
	if text == "" || tag == "" {
		return model.Note{}, false
	}
	assignee := strings.TrimSpace(d.Assignee)
	if assignee == "" {
		assignee = model.DefaultAssignee
	}
	var img *string
	if d.Image != nil && strings.TrimSpace(*d.Image) != "" {
		v := *d.Image
		img = &v
	}
	return model.Note{
		ID:       id,
		Text:     text,
		Tag:      tag,
		Assignee: assignee,
		Date:     now.Format(DateLayout),
		Image:    img,
		X:        model.BoardWidth/2 - model.NoteWidth/2 + (rng.Float64()*100 - 50),
		Y:        model.BoardHeight/2 - model.NoteHeight/2 + (rng.Float64()*100 - 50),
		Rotation: rng.Float64()*6 - 3,
	}, true
}

// NewTagColor picks a random dark hue.
func NewTagColor(rng *rand.Rand) string {
	return fmt.Sprintf("hsl(%d, 70%%, 30%%)", rng.Intn(360))
}
