package models

// Clip is a timeline entry referencing a trimmed range of a source media asset.
// StartTime is derived by relayout and never edited directly outside a drag preview.
type Clip struct {
	ID             string      `json:"id"`
	MediaFileID    string      `json:"media_file_id,omitempty"`
	SourceURL      string      `json:"source_url"`
	ThumbnailURL   string      `json:"thumbnail_url,omitempty"`
	FileName       string      `json:"file_name,omitempty"`
	SourceDuration float64     `json:"source_duration"`
	StartTime      float64     `json:"start_time"`
	TrimStart      float64     `json:"trim_start"`
	TrimEnd        float64     `json:"trim_end"`
	TransitionOut  *Transition `json:"transition_out,omitempty"`
	Audio          AudioInfo   `json:"audio"`
}

// AudioInfo holds the audio state of a clip's embedded track
type AudioInfo struct {
	HasAudio bool    `json:"has_audio"`
	Volume   float64 `json:"volume"`
	Muted    bool    `json:"muted"`
}

// DefaultAudioInfo is the audio state of a freshly added clip
func DefaultAudioInfo() AudioInfo {
	return AudioInfo{HasAudio: true, Volume: 1, Muted: false}
}

// Transition describes the transition rendered between a clip and its successor
type Transition struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
}

// MediaSource is a library item that can be added to the timeline
type MediaSource struct {
	MediaFileID  string  `json:"media_file_id"`
	URL          string  `json:"url"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	FileName     string  `json:"file_name,omitempty"`
	Duration     float64 `json:"duration"`
}

// Transition types
const (
	TransitionNone        = "none"
	TransitionFade        = "fade"
	TransitionFadeBlack   = "fadeblack"
	TransitionFadeWhite   = "fadewhite"
	TransitionDissolve    = "dissolve"
	TransitionWipeLeft    = "wipeleft"
	TransitionWipeRight   = "wiperight"
	TransitionWipeUp      = "wipeup"
	TransitionWipeDown    = "wipedown"
	TransitionSlideLeft   = "slideleft"
	TransitionSlideRight  = "slideright"
	TransitionSlideUp     = "slideup"
	TransitionSlideDown   = "slidedown"
	TransitionCircleCrop  = "circlecrop"
	TransitionRectCrop    = "rectcrop"
	TransitionCircleOpen  = "circleopen"
	TransitionCircleClose = "circleclose"
	TransitionPixelize    = "pixelize"
	TransitionRadial      = "radial"
	TransitionSmoothLeft  = "smoothleft"
	TransitionSmoothRight = "smoothright"
	TransitionSmoothUp    = "smoothup"
	TransitionSmoothDown  = "smoothdown"
)

// TransitionCategories groups transition types the way the editor presents them
var TransitionCategories = map[string][]string{
	"basic":   {TransitionFade, TransitionFadeBlack, TransitionFadeWhite, TransitionDissolve},
	"wipe":    {TransitionWipeLeft, TransitionWipeRight, TransitionWipeUp, TransitionWipeDown},
	"slide":   {TransitionSlideLeft, TransitionSlideRight, TransitionSlideUp, TransitionSlideDown},
	"shape":   {TransitionCircleCrop, TransitionRectCrop, TransitionCircleOpen, TransitionCircleClose},
	"special": {TransitionPixelize, TransitionRadial, TransitionSmoothLeft, TransitionSmoothRight, TransitionSmoothUp, TransitionSmoothDown},
}

// IsValidTransition reports whether t names a known transition (none included)
func IsValidTransition(t string) bool {
	if t == TransitionNone {
		return true
	}
	for _, types := range TransitionCategories {
		for _, candidate := range types {
			if candidate == t {
				return true
			}
		}
	}
	return false
}
