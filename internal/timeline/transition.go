package timeline

import (
	"math"

	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// MaxTransition returns the longest transition allowed after the clip at i,
// or 0 when the clip has no successor.
func MaxTransition(clips []models.Clip, i int) float64 {
	if i < 0 || i >= len(clips)-1 {
		return 0
	}
	a := EffectiveDuration(clips[i]) / 2
	b := EffectiveDuration(clips[i+1]) / 2
	return math.Min(MaxTransitionDuration, math.Min(a, b))
}

// SetTransition sets or clears the outgoing transition of a clip.
// The type "none" clears it; durations are capped to what both clips allow.
func (t *Timeline) SetTransition(id, kind string, duration float64) (*models.Transition, error) {
	i := t.index(id)
	if i < 0 {
		return nil, reject("transition", id, ErrClipNotFound)
	}
	if kind == models.TransitionNone || kind == "" {
		t.clips[i].TransitionOut = nil
		return nil, nil
	}
	if !models.IsValidTransition(kind) {
		return nil, reject("transition", id, ErrUnknownTransition)
	}
	maxDur := MaxTransition(t.clips, i)
	if maxDur <= 0 {
		return nil, reject("transition", id, ErrNoSuccessor)
	}
	if duration <= 0 {
		duration = math.Min(1.0, maxDur)
	}
	tr := &models.Transition{Type: kind, Duration: math.Min(duration, maxDur)}
	t.clips[i].TransitionOut = tr
	out := *tr
	return &out, nil
}

// normalizeTransitions drops the transition of the last clip and caps the rest
func normalizeTransitions(clips []models.Clip) {
	for i := range clips {
		tr := clips[i].TransitionOut
		if tr == nil {
			continue
		}
		maxDur := MaxTransition(clips, i)
		if maxDur <= 0 {
			clips[i].TransitionOut = nil
			continue
		}
		if tr.Duration > maxDur {
			tr.Duration = maxDur
		}
	}
}
