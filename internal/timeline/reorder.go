package timeline

import (
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// DropIndex resolves where a dragged clip lands for a pointer at pointerTime.
// The index is into the clip list with the dragged clip removed: the first clip
// whose midpoint lies past the pointer wins, and a pointer past every midpoint
// lands at the end. ok is false when there is nothing to reorder against.
func DropIndex(clips []models.Clip, draggedID string, pointerTime float64) (int, bool) {
	n := 0
	for _, c := range clips {
		if c.ID == draggedID {
			continue
		}
		if Midpoint(c) > pointerTime {
			return n, true
		}
		n++
	}
	if n == 0 {
		return -1, false
	}
	return n, true
}

// DropIndex resolves a drop position against the committed clips
func (t *Timeline) DropIndex(draggedID string, pointerTime float64) (int, bool) {
	return DropIndex(t.clips, draggedID, pointerTime)
}

// CommitReorder finishes a drag. With a computed target the clip is spliced at
// index; without one the list snaps back to StartTime order. Both relayout.
func (t *Timeline) CommitReorder(id string, index int, ok bool) error {
	i := t.index(id)
	if i < 0 {
		return reject("reorder", id, ErrClipNotFound)
	}
	if !ok {
		t.commit(SortByStart(t.clips))
		return nil
	}

	dragged := t.clips[i]
	rest := make([]models.Clip, 0, len(t.clips))
	rest = append(rest, t.clips[:i]...)
	rest = append(rest, t.clips[i+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(rest) {
		index = len(rest)
	}

	next := make([]models.Clip, 0, len(t.clips))
	next = append(next, rest[:index]...)
	next = append(next, dragged)
	next = append(next, rest[index:]...)
	t.commit(next)
	return nil
}

// Move places a clip at an absolute index
func (t *Timeline) Move(id string, index int) error {
	return t.CommitReorder(id, index, true)
}
