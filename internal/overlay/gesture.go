package overlay

import "math"

// Span is the time range of an overlay item
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End-Start
func (s Span) Duration() float64 {
	return s.End - s.Start
}

// GestureRules bounds how an overlay range responds to move/resize drags
type GestureRules struct {
	// Grid snaps times to multiples of Grid; zero disables snapping
	Grid float64
	// MinDuration is the shortest range a resize-end can produce
	MinDuration float64
	// StartGap is how close to the original end a resize-start may go
	StartGap float64
}

// TextGestureRules mirror the text track: 0.25s grid, 0.25s minimum
var TextGestureRules = GestureRules{Grid: 0.25, MinDuration: 0.25, StartGap: 0.5}

// CaptionGestureRules have no grid and keep captions at least 0.5s long
var CaptionGestureRules = GestureRules{MinDuration: 0.5, StartGap: 0.5}

func (r GestureRules) snap(t float64) float64 {
	if r.Grid <= 0 {
		return t
	}
	return math.Round(t/r.Grid) * r.Grid
}

// Move shifts the whole range by delta, never before zero
func (r GestureRules) Move(orig Span, delta float64) Span {
	start := r.snap(math.Max(0, orig.Start+delta))
	return Span{Start: start, End: start + orig.Duration()}
}

// ResizeStart moves the start edge, keeping the end fixed
func (r GestureRules) ResizeStart(orig Span, delta float64) Span {
	start := r.snap(math.Max(0, orig.Start+delta))
	start = math.Min(start, orig.End-r.StartGap)
	start = math.Max(0, start)
	duration := math.Max(r.MinDuration, r.snap(orig.End-start))
	return Span{Start: start, End: start + duration}
}

// ResizeEnd moves the end edge, keeping the start fixed
func (r GestureRules) ResizeEnd(orig Span, delta float64) Span {
	duration := r.snap(math.Max(r.MinDuration, orig.Duration()+delta))
	if duration < r.MinDuration {
		duration = r.MinDuration
	}
	return Span{Start: orig.Start, End: orig.Start + duration}
}

// AtPlayheadDuration is the length given to an item created at the playhead:
// three seconds, or what is left of the timeline, but never under half a second.
func AtPlayheadDuration(playhead, total float64) float64 {
	return math.Min(3, math.Max(0.5, total-playhead))
}
