package models

// PlaybackState is the per-session playhead state. It is rebuilt from clips on load.
type PlaybackState struct {
	Playing      bool    `json:"playing"`
	CurrentTime  float64 `json:"current_time"`
	ActiveClipID string  `json:"active_clip_id,omitempty"`
}
