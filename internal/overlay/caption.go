package overlay

import (
	"math"

	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// CaptionPatch is a partial update of a caption segment
type CaptionPatch struct {
	Text      *string              `json:"text,omitempty"`
	StartTime *float64             `json:"start_time,omitempty"`
	EndTime   *float64             `json:"end_time,omitempty"`
	Style     *models.CaptionStyle `json:"style,omitempty"`
}

// CaptionTrack holds caption segments and the track-wide style
type CaptionTrack struct {
	*Track[models.CaptionSegment]
	Style models.CaptionStyle
	newID func() string
}

// NewCaptionTrack creates an empty caption track with the default style
func NewCaptionTrack(newID func() string) *CaptionTrack {
	return &CaptionTrack{
		Track: NewTrack(
			func(c models.CaptionSegment) string { return c.ID },
			func(c models.CaptionSegment) (float64, float64) { return c.StartTime, c.EndTime },
		),
		Style: models.DefaultCaptionStyle(),
		newID: newID,
	}
}

// AddAt creates a caption at the playhead
func (t *CaptionTrack) AddAt(text string, playhead, total float64) models.CaptionSegment {
	start := math.Max(0, playhead)
	c := models.CaptionSegment{
		ID:        t.newID(),
		StartTime: start,
		EndTime:   start + AtPlayheadDuration(playhead, total),
		Text:      text,
	}
	t.items = append(t.items, c)
	return c
}

// Insert adds a fully specified caption, assigning an id if missing
func (t *CaptionTrack) Insert(c models.CaptionSegment) models.CaptionSegment {
	if c.ID == "" {
		c.ID = t.newID()
	}
	c = normalizeCaption(c)
	t.items = append(t.items, c)
	return c
}

// Patch applies a partial update
func (t *CaptionTrack) Patch(id string, p CaptionPatch) (models.CaptionSegment, error) {
	return t.Update(id, func(c *models.CaptionSegment) {
		if p.Text != nil {
			c.Text = *p.Text
		}
		if p.StartTime != nil {
			c.StartTime = *p.StartTime
		}
		if p.EndTime != nil {
			c.EndTime = *p.EndTime
		}
		if p.Style != nil {
			st := *p.Style
			c.Style = &st
		}
		*c = normalizeCaption(*c)
	})
}

// SetSpan writes the result of a move/resize gesture
func (t *CaptionTrack) SetSpan(id string, s Span) (models.CaptionSegment, error) {
	return t.Update(id, func(c *models.CaptionSegment) {
		c.StartTime = s.Start
		c.EndTime = s.End
		*c = normalizeCaption(*c)
	})
}

// Span returns the time range of a caption
func (t *CaptionTrack) Span(id string) (Span, bool) {
	c, ok := t.Get(id)
	if !ok {
		return Span{}, false
	}
	return Span{Start: c.StartTime, End: c.EndTime}, true
}

// Duplicate copies a caption and places it right after the original
func (t *CaptionTrack) Duplicate(id string) (models.CaptionSegment, error) {
	c, ok := t.Get(id)
	if !ok {
		return models.CaptionSegment{}, ErrNotFound
	}
	d := c.EndTime - c.StartTime
	c.ID = t.newID()
	c.StartTime += d
	c.EndTime += d
	if c.Style != nil {
		st := *c.Style
		c.Style = &st
	}
	t.items = append(t.items, c)
	return c, nil
}

// EffectiveStyle resolves a caption's own style against the track style
func (t *CaptionTrack) EffectiveStyle(c models.CaptionSegment) models.CaptionStyle {
	if c.Style != nil {
		return *c.Style
	}
	return t.Style
}

func normalizeCaption(c models.CaptionSegment) models.CaptionSegment {
	c.StartTime = math.Max(0, c.StartTime)
	if c.EndTime < c.StartTime+CaptionGestureRules.MinDuration {
		c.EndTime = c.StartTime + CaptionGestureRules.MinDuration
	}
	return c
}
