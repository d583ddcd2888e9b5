package timeline

import (
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Split cuts a clip at timeline time at into two clips that replace it in place.
// The first piece keeps the original id; the second gets a new one and inherits
// the outgoing transition.
func (t *Timeline) Split(id string, at float64) (models.Clip, models.Clip, error) {
	i := t.index(id)
	if i < 0 {
		return models.Clip{}, models.Clip{}, reject("split", id, ErrClipNotFound)
	}
	orig := t.clips[i]
	start, end := orig.StartTime, EndTime(orig)

	if at < start || at > end {
		return models.Clip{}, models.Clip{}, reject("split", id, ErrSplitOutsideClip)
	}
	if at-start < t.opts.SplitEdgeTolerance || end-at < t.opts.SplitEdgeTolerance {
		return models.Clip{}, models.Clip{}, reject("split", id, ErrSplitAtEdge)
	}
	if at-start < t.opts.MinClipDuration || end-at < t.opts.MinClipDuration {
		return models.Clip{}, models.Clip{}, reject("split", id, ErrClipTooShort)
	}

	splitPoint := orig.TrimStart + (at - start)

	first := cloneClip(orig)
	first.TrimEnd = orig.SourceDuration - splitPoint
	first.TransitionOut = nil

	second := cloneClip(orig)
	second.ID = t.opts.NewID()
	second.TrimStart = splitPoint
	second.TrimEnd = orig.TrimEnd

	next := make([]models.Clip, 0, len(t.clips)+1)
	next = append(next, t.clips[:i]...)
	next = append(next, first, second)
	next = append(next, t.clips[i+1:]...)
	t.commit(next)

	a, _ := t.Clip(first.ID)
	b, _ := t.Clip(second.ID)
	return a, b, nil
}
