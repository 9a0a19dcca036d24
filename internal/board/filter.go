package board

import "questboard/internal/model"

// FilterIndex partitions notes into visible and hidden by the selected tag.
// It holds no state of its own beyond the last computed partition.
type FilterIndex struct {
	selected string
	visible  map[string]bool
	order    []string
	hidden   []string
}

func NewFilterIndex() *FilterIndex {
	return &FilterIndex{selected: model.FilterAll, visible: map[string]bool{}}
}

// Matches is the visibility rule: f == "all" or the note's tag equals f.
func Matches(n model.Note, f string) bool {
	return f == model.FilterAll || n.Tag == f
}

// Recompute rebuilds the partition for notes under filter f.
func (fi *FilterIndex) Recompute(notes []model.Note, f string) {
	if f == "" {
		f = model.FilterAll
	}
	fi.selected = f
	fi.visible = make(map[string]bool, len(notes))
	fi.order = fi.order[:0]
	fi.hidden = fi.hidden[:0]
	for _, n := range notes {
		if Matches(n, f) {
			fi.visible[n.ID] = true
			fi.order = append(fi.order, n.ID)
		} else {
			fi.hidden = append(fi.hidden, n.ID)
		}
	}
}

func (fi *FilterIndex) Selected() string      { return fi.selected }
func (fi *FilterIndex) Visible(id string) bool { return fi.visible[id] }

func (fi *FilterIndex) VisibleIDs() []string { return append([]string(nil), fi.order...) }
func (fi *FilterIndex) HiddenIDs() []string  { return append([]string(nil), fi.hidden...) }
