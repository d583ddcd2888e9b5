package models

// AudioSegment is a detached audio range on the audio track.
// SourceClipID is a back reference used only to find the clip on reattach.
type AudioSegment struct {
	ID            string  `json:"id"`
	SourceClipID  string  `json:"source_clip_id"`
	SourceURL     string  `json:"source_url"`
	StartTime     float64 `json:"start_time"`
	Duration      float64 `json:"duration"`
	TrimStart     float64 `json:"trim_start"`
	TrimEnd       float64 `json:"trim_end"`
	Volume        float64 `json:"volume"`
	LinkedToVideo bool    `json:"linked_to_video"`
}

// EndTime returns the timeline time the segment stops playing
func (s AudioSegment) EndTime() float64 {
	return s.StartTime + s.Duration
}
