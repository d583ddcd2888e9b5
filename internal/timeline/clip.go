package timeline

import (
	"math"
	"sort"

	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

const (
	// MinClipDuration is the shortest on-timeline length a clip may have
	MinClipDuration = 0.5
	// SplitEdgeTolerance is how close to a clip boundary a split is refused
	SplitEdgeTolerance = 0.1
	// DefaultClipDuration is used when a media source reports no duration
	DefaultClipDuration = 8.0
	// MaxTransitionDuration caps any transition regardless of clip lengths
	MaxTransitionDuration = 2.0

	// timeEpsilon absorbs float drift from cumulative sums
	timeEpsilon = 1e-9
)

// EffectiveDuration returns the on-timeline length of a clip
func EffectiveDuration(c models.Clip) float64 {
	return c.SourceDuration - c.TrimStart - c.TrimEnd
}

// EndTime returns the timeline time at which a clip ends
func EndTime(c models.Clip) float64 {
	return c.StartTime + EffectiveDuration(c)
}

// Midpoint returns the timeline time halfway through a clip
func Midpoint(c models.Clip) float64 {
	return c.StartTime + EffectiveDuration(c)/2
}

// SourceWindow returns the playable range of a clip in its own source time
func SourceWindow(c models.Clip) (from, to float64) {
	return c.TrimStart, c.SourceDuration - c.TrimEnd
}

// TotalDuration returns the end of the last clip, or 0 for an empty timeline
func TotalDuration(clips []models.Clip) float64 {
	total := 0.0
	for _, c := range clips {
		total = math.Max(total, EndTime(c))
	}
	return total
}

// Clone deep-copies a clip slice
func Clone(clips []models.Clip) []models.Clip {
	if clips == nil {
		return nil
	}
	out := make([]models.Clip, len(clips))
	for i, c := range clips {
		out[i] = cloneClip(c)
	}
	return out
}

func cloneClip(c models.Clip) models.Clip {
	if c.TransitionOut != nil {
		tr := *c.TransitionOut
		c.TransitionOut = &tr
	}
	return c
}

// SortByStart returns a copy of clips stably ordered by StartTime
func SortByStart(clips []models.Clip) []models.Clip {
	out := Clone(clips)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// Relayout assigns StartTime by cumulative effective duration in the given order.
// It is the only place StartTime is written for committed clips.
func Relayout(clips []models.Clip) []models.Clip {
	out := Clone(clips)
	cursor := 0.0
	for i := range out {
		out[i].StartTime = cursor
		cursor += EffectiveDuration(out[i])
	}
	return out
}

// ActiveClipAt returns the first clip with start <= t < end
func ActiveClipAt(clips []models.Clip, t float64) (models.Clip, int, bool) {
	for i, c := range clips {
		if t >= c.StartTime && t < EndTime(c) {
			return c, i, true
		}
	}
	return models.Clip{}, -1, false
}

// ClampTrims forces a clip's trims into the valid range for minClip
func ClampTrims(c models.Clip, minClip float64) models.Clip {
	if c.SourceDuration < minClip {
		c.SourceDuration = minClip
	}
	maxTrim := c.SourceDuration - minClip
	c.TrimStart = clamp(c.TrimStart, 0, maxTrim)
	c.TrimEnd = clamp(c.TrimEnd, 0, maxTrim-c.TrimStart)
	return c
}

// Validate checks the trim bounds and gapless invariants of a committed clip list
func Validate(clips []models.Clip, minClip float64) error {
	for i, c := range clips {
		if c.TrimStart < -timeEpsilon || c.TrimEnd < -timeEpsilon {
			return &InvariantError{ClipID: c.ID, Reason: "negative trim"}
		}
		if c.TrimStart+c.TrimEnd > c.SourceDuration-minClip+timeEpsilon {
			return &InvariantError{ClipID: c.ID, Reason: "trims exceed source duration"}
		}
		if i == 0 {
			if math.Abs(c.StartTime) > timeEpsilon {
				return &InvariantError{ClipID: c.ID, Reason: "first clip does not start at zero"}
			}
			continue
		}
		if math.Abs(c.StartTime-EndTime(clips[i-1])) > 1e-6 {
			return &InvariantError{ClipID: c.ID, Reason: "gap or overlap with previous clip"}
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}
