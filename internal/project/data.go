package project

import (
	"math"

	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Timeline zoom, in pixels per second of timeline
const (
	MinScale     = 20.0
	MaxScale     = 100.0
	ScaleStep    = 10.0
	DefaultScale = 50.0
)

// ClampScale snaps a zoom level onto the supported steps; anything unusable
// falls back to the default
func ClampScale(scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return DefaultScale
	}
	scale = math.Round(scale/ScaleStep) * ScaleStep
	return math.Max(MinScale, math.Min(MaxScale, scale))
}

// ZoomIn returns the next larger scale step
func ZoomIn(scale float64) float64 {
	return ClampScale(ClampScale(scale) + ScaleStep)
}

// ZoomOut returns the next smaller scale step
func ZoomOut(scale float64) float64 {
	return ClampScale(ClampScale(scale) - ScaleStep)
}

// Normalize fills defaults so stored documents from older builds load cleanly
func Normalize(d models.ProjectData) models.ProjectData {
	if d.Clips == nil {
		d.Clips = []models.Clip{}
	}
	if d.TextOverlays == nil {
		d.TextOverlays = []models.TextOverlay{}
	}
	for i := range d.Clips {
		// version 1 documents had no per-clip audio state
		if d.Version < 2 && d.Clips[i].Audio == (models.AudioInfo{}) {
			d.Clips[i].Audio = models.DefaultAudioInfo()
		}
	}
	d.TimelineScale = ClampScale(d.TimelineScale)
	d.Version = models.ProjectDataVersion
	return d
}
