package timeline

import (
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Edge selects which end of a clip a trim moves
type Edge string

const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)

// TrimDraft is the transient result of a trim drag
type TrimDraft struct {
	ClipID    string  `json:"clip_id"`
	StartTime float64 `json:"start_time"`
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
}

// Apply overlays the draft onto a clip
func (d TrimDraft) Apply(c models.Clip) models.Clip {
	c.StartTime = d.StartTime
	c.TrimStart = d.TrimStart
	c.TrimEnd = d.TrimEnd
	return c
}

// PreviewTrim computes where a clip edge would land for a pointer at target,
// without touching the committed clips.
func (t *Timeline) PreviewTrim(id string, edge Edge, target float64) (TrimDraft, error) {
	i := t.index(id)
	if i < 0 {
		return TrimDraft{}, reject("trim", id, ErrClipNotFound)
	}
	return trimDraft(t.clips[i], edge, target, t.opts.MinClipDuration)
}

func trimDraft(c models.Clip, edge Edge, target, minClip float64) (TrimDraft, error) {
	draft := TrimDraft{
		ClipID:    c.ID,
		StartTime: c.StartTime,
		TrimStart: c.TrimStart,
		TrimEnd:   c.TrimEnd,
	}

	switch edge {
	case EdgeStart:
		newStart := clamp(target, 0, EndTime(c)-minClip)
		draft.TrimStart = clamp(c.TrimStart+(newStart-c.StartTime), 0, c.SourceDuration-minClip)
		// keep the right edge fixed while dragging
		draft.StartTime = EndTime(c) - (c.SourceDuration - draft.TrimStart - c.TrimEnd)
	case EdgeEnd:
		newEnd := target
		if newEnd < c.StartTime+minClip {
			newEnd = c.StartTime + minClip
		}
		draft.TrimEnd = clamp(c.TrimEnd+(EndTime(c)-newEnd), 0, c.SourceDuration-c.TrimStart-minClip)
	default:
		return TrimDraft{}, reject("trim", c.ID, ErrUnknownEdge)
	}
	return draft, nil
}

// CommitTrim writes trim values produced by a gesture and closes any gap
func (t *Timeline) CommitTrim(id string, trimStart, trimEnd float64) error {
	i := t.index(id)
	if i < 0 {
		return reject("trim", id, ErrClipNotFound)
	}
	c := t.clips[i]
	if trimStart < 0 || trimEnd < 0 {
		return reject("trim", id, ErrNegativeTrim)
	}
	if c.SourceDuration-trimStart-trimEnd < t.opts.MinClipDuration-timeEpsilon {
		return reject("trim", id, ErrClipTooShort)
	}

	next := Clone(t.clips)
	next[i].TrimStart = trimStart
	next[i].TrimEnd = trimEnd
	t.commit(next)
	return nil
}

// Trim previews and commits in one step
func (t *Timeline) Trim(id string, edge Edge, target float64) (models.Clip, error) {
	draft, err := t.PreviewTrim(id, edge, target)
	if err != nil {
		return models.Clip{}, err
	}
	if err := t.CommitTrim(id, draft.TrimStart, draft.TrimEnd); err != nil {
		return models.Clip{}, err
	}
	c, _ := t.Clip(id)
	return c, nil
}
