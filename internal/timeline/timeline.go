package timeline

import (
	"math"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Options tunes the editing rules of a Timeline
type Options struct {
	MinClipDuration     float64
	SplitEdgeTolerance  float64
	DefaultClipDuration float64
	NewID               func() string
}

// DefaultOptions returns the standard editing rules
func DefaultOptions() Options {
	return Options{
		MinClipDuration:     MinClipDuration,
		SplitEdgeTolerance:  SplitEdgeTolerance,
		DefaultClipDuration: DefaultClipDuration,
		NewID:               func() string { return uuid.New().String() },
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinClipDuration <= 0 {
		o.MinClipDuration = d.MinClipDuration
	}
	if o.SplitEdgeTolerance <= 0 {
		o.SplitEdgeTolerance = d.SplitEdgeTolerance
	}
	if o.DefaultClipDuration <= 0 {
		o.DefaultClipDuration = d.DefaultClipDuration
	}
	if o.NewID == nil {
		o.NewID = d.NewID
	}
	return o
}

// Timeline owns the committed, ordered clip list of one project.
// It is not safe for concurrent use; callers serialize access.
type Timeline struct {
	clips []models.Clip
	opts  Options
}

// New creates an empty timeline
func New(opts Options) *Timeline {
	return &Timeline{opts: opts.withDefaults()}
}

// FromClips builds a timeline from persisted clips, repairing trims and layout
func FromClips(clips []models.Clip, opts Options) *Timeline {
	t := New(opts)
	t.Replace(clips)
	return t
}

// Options returns the rules the timeline was built with
func (t *Timeline) Options() Options {
	return t.opts
}

// Clips returns a copy of the committed clips in timeline order
func (t *Timeline) Clips() []models.Clip {
	return Clone(t.clips)
}

// Len returns the number of clips
func (t *Timeline) Len() int {
	return len(t.clips)
}

// Clip returns a copy of the clip with the given id
func (t *Timeline) Clip(id string) (models.Clip, bool) {
	i := t.index(id)
	if i < 0 {
		return models.Clip{}, false
	}
	return cloneClip(t.clips[i]), true
}

// Index returns the position of a clip or -1
func (t *Timeline) Index(id string) int {
	return t.index(id)
}

func (t *Timeline) index(id string) int {
	for i, c := range t.clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// TotalDuration returns the end time of the last clip
func (t *Timeline) TotalDuration() float64 {
	return TotalDuration(t.clips)
}

// Replace swaps in a whole clip list, as done when restoring a snapshot or loading a project
func (t *Timeline) Replace(clips []models.Clip) {
	next := SortByStart(clips)
	for i := range next {
		next[i] = ClampTrims(next[i], t.opts.MinClipDuration)
	}
	t.commit(next)
}

// Clear removes every clip
func (t *Timeline) Clear() {
	t.clips = nil
}

// commit relayouts and normalizes transitions. Every structural edit ends here.
func (t *Timeline) commit(clips []models.Clip) {
	clips = Relayout(clips)
	normalizeTransitions(clips)
	t.clips = clips
}

// AddClips appends clips for the given media sources after the current end
func (t *Timeline) AddClips(sources []models.MediaSource) []models.Clip {
	cursor := t.TotalDuration()
	added := make([]models.Clip, 0, len(sources))
	for _, src := range sources {
		duration := src.Duration
		if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
			duration = t.opts.DefaultClipDuration
		}
		if duration < t.opts.MinClipDuration {
			duration = t.opts.MinClipDuration
		}

		clip := models.Clip{
			ID:             t.opts.NewID(),
			MediaFileID:    src.MediaFileID,
			SourceURL:      src.URL,
			ThumbnailURL:   src.ThumbnailURL,
			FileName:       src.FileName,
			SourceDuration: duration,
			StartTime:      cursor,
			Audio:          models.DefaultAudioInfo(),
		}
		cursor += duration
		added = append(added, clip)
	}

	t.clips = append(t.clips, Clone(added)...)
	normalizeTransitions(t.clips)
	return added
}

// Delete removes a clip and closes the gap
func (t *Timeline) Delete(id string) error {
	i := t.index(id)
	if i < 0 {
		return reject("delete", id, ErrClipNotFound)
	}
	next := make([]models.Clip, 0, len(t.clips)-1)
	next = append(next, t.clips[:i]...)
	next = append(next, t.clips[i+1:]...)
	t.commit(next)
	return nil
}
