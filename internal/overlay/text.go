package overlay

import (
	"math"
	"strings"

	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

const (
	MinFontSize = 12
	MaxFontSize = 120

	// duplicateNudge is how far a duplicated text overlay is shifted, in percent
	duplicateNudge = 5.0
)

// TextPatch is a partial update of a text overlay
type TextPatch struct {
	Text      *string           `json:"text,omitempty"`
	StartTime *float64          `json:"start_time,omitempty"`
	Duration  *float64          `json:"duration,omitempty"`
	Position  *models.Position  `json:"position,omitempty"`
	Style     *models.TextStyle `json:"style,omitempty"`
}

// TextTrack holds the text overlays of a project
type TextTrack struct {
	*Track[models.TextOverlay]
	newID func() string
}

// NewTextTrack creates an empty text track
func NewTextTrack(newID func() string) *TextTrack {
	return &TextTrack{
		Track: NewTrack(
			func(o models.TextOverlay) string { return o.ID },
			func(o models.TextOverlay) (float64, float64) { return o.StartTime, o.StartTime + o.Duration },
		),
		newID: newID,
	}
}

// AddAt creates a text overlay at the playhead with the default style
func (t *TextTrack) AddAt(text string, playhead, total float64) models.TextOverlay {
	o := models.TextOverlay{
		ID:        t.newID(),
		StartTime: math.Max(0, playhead),
		Duration:  AtPlayheadDuration(playhead, total),
		Text:      text,
		Position:  models.Position{X: 50, Y: 50},
		Style:     models.DefaultTextStyle(),
	}
	t.items = append(t.items, o)
	return o
}

// Insert adds a fully specified overlay, assigning an id if missing
func (t *TextTrack) Insert(o models.TextOverlay) models.TextOverlay {
	if o.ID == "" {
		o.ID = t.newID()
	}
	o = normalizeText(o)
	t.items = append(t.items, o)
	return o
}

// Patch applies a partial update with clamping
func (t *TextTrack) Patch(id string, p TextPatch) (models.TextOverlay, error) {
	return t.Update(id, func(o *models.TextOverlay) {
		if p.Text != nil {
			o.Text = *p.Text
		}
		if p.StartTime != nil {
			o.StartTime = *p.StartTime
		}
		if p.Duration != nil {
			o.Duration = *p.Duration
		}
		if p.Position != nil {
			o.Position = *p.Position
		}
		if p.Style != nil {
			o.Style = *p.Style
		}
		*o = normalizeText(*o)
	})
}

// SetSpan writes the result of a move/resize gesture
func (t *TextTrack) SetSpan(id string, s Span) (models.TextOverlay, error) {
	return t.Update(id, func(o *models.TextOverlay) {
		o.StartTime = s.Start
		o.Duration = s.Duration()
		*o = normalizeText(*o)
	})
}

// Span returns the time range of an overlay
func (t *TextTrack) Span(id string) (Span, bool) {
	o, ok := t.Get(id)
	if !ok {
		return Span{}, false
	}
	return Span{Start: o.StartTime, End: o.StartTime + o.Duration}, true
}

// Duplicate copies an overlay with a new id, nudged down and right
func (t *TextTrack) Duplicate(id string) (models.TextOverlay, error) {
	o, ok := t.Get(id)
	if !ok {
		return models.TextOverlay{}, ErrNotFound
	}
	o.ID = t.newID()
	o.Position.X += duplicateNudge
	o.Position.Y += duplicateNudge
	o = normalizeText(o)
	t.items = append(t.items, o)
	return o, nil
}

func normalizeText(o models.TextOverlay) models.TextOverlay {
	o.StartTime = math.Max(0, o.StartTime)
	o.Duration = math.Max(TextGestureRules.MinDuration, o.Duration)
	o.Position.X = clampPercent(o.Position.X)
	o.Position.Y = clampPercent(o.Position.Y)
	if o.Style.FontSize < MinFontSize {
		o.Style.FontSize = MinFontSize
	}
	if o.Style.FontSize > MaxFontSize {
		o.Style.FontSize = MaxFontSize
	}
	o.Style.Opacity = math.Max(0, math.Min(1, o.Style.Opacity))
	if strings.TrimSpace(o.Style.FontFamily) == "" {
		o.Style.FontFamily = models.DefaultTextStyle().FontFamily
	}
	return o
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
