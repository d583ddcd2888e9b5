package timeline

import (
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// SetClipVolume sets a clip's own gain in [0,1]
func (t *Timeline) SetClipVolume(id string, volume float64) error {
	i := t.index(id)
	if i < 0 {
		return reject("volume", id, ErrClipNotFound)
	}
	if volume < 0 || volume > 1 {
		return reject("volume", id, ErrInvalidVolume)
	}
	t.clips[i].Audio.Volume = volume
	return nil
}

// ToggleClipMute flips a clip's mute flag and returns the new value
func (t *Timeline) ToggleClipMute(id string) (bool, error) {
	i := t.index(id)
	if i < 0 {
		return false, reject("mute", id, ErrClipNotFound)
	}
	t.clips[i].Audio.Muted = !t.clips[i].Audio.Muted
	return t.clips[i].Audio.Muted, nil
}

// SetClipAudio replaces a clip's audio info
func (t *Timeline) SetClipAudio(id string, audio models.AudioInfo) error {
	i := t.index(id)
	if i < 0 {
		return reject("audio", id, ErrClipNotFound)
	}
	t.clips[i].Audio = audio
	return nil
}
