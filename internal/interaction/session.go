package interaction

import (
	"time"

	"github.com/therealutkarshpriyadarshi/timeline/internal/overlay"
	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Kind identifies what a gesture is dragging
type Kind string

const (
	KindMove               Kind = "move"
	KindTrimStart          Kind = "trim-start"
	KindTrimEnd            Kind = "trim-end"
	KindScrub              Kind = "scrub"
	KindOverlayMove        Kind = "overlay-move"
	KindOverlayResizeStart Kind = "overlay-resize-start"
	KindOverlayResizeEnd   Kind = "overlay-resize-end"
)

// Valid reports whether k is a known gesture kind
func (k Kind) Valid() bool {
	switch k {
	case KindMove, KindTrimStart, KindTrimEnd, KindScrub,
		KindOverlayMove, KindOverlayResizeStart, KindOverlayResizeEnd:
		return true
	}
	return false
}

// Draft is the transient state a gesture would commit
type Draft struct {
	Clip      *timeline.TrimDraft `json:"clip,omitempty"`
	Span      *overlay.Span       `json:"span,omitempty"`
	Playhead  float64             `json:"playhead"`
	DropIndex int                 `json:"drop_index"`
	DropOK    bool                `json:"drop_ok"`
}

// Session is one in-flight gesture. Origin is the pointer time at Begin.
type Session struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entity_id"`
	Kind      Kind      `json:"kind"`
	Origin    float64   `json:"origin"`
	Pointer   float64   `json:"pointer"`
	Draft     Draft     `json:"draft"`
	Updates   int       `json:"updates"`
	StartedAt time.Time `json:"started_at"`
}

// Delta returns how far the pointer has moved since Begin
func (s Session) Delta() float64 {
	return s.Pointer - s.Origin
}

// ApplyClip overlays the session's clip draft onto a committed clip list.
// The input is not modified.
func (s Session) ApplyClip(clips []models.Clip) []models.Clip {
	out := timeline.Clone(clips)
	if s.Draft.Clip == nil {
		return out
	}
	for i := range out {
		if out[i].ID == s.Draft.Clip.ClipID {
			out[i] = s.Draft.Clip.Apply(out[i])
		}
	}
	return out
}
