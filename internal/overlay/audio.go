package overlay

import (
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

var (
	ErrNoAudio           = errors.New("clip has no attached audio")
	ErrSourceClipMissing = errors.New("source clip no longer exists")
)

// AudioTrack holds audio segments detached from clips
type AudioTrack struct {
	*Track[models.AudioSegment]
	newID func() string
}

// NewAudioTrack creates an empty audio track
func NewAudioTrack(newID func() string) *AudioTrack {
	return &AudioTrack{
		Track: NewTrack(
			func(s models.AudioSegment) string { return s.ID },
			func(s models.AudioSegment) (float64, float64) { return s.StartTime, s.EndTime() },
		),
		newID: newID,
	}
}

// Detach moves a clip's audio onto the audio track. The segment copies the
// clip's effective range and volume; the clip keeps playing video only.
func (a *AudioTrack) Detach(tl *timeline.Timeline, clipID string) (models.AudioSegment, error) {
	clip, ok := tl.Clip(clipID)
	if !ok {
		return models.AudioSegment{}, timeline.ErrClipNotFound
	}
	if !clip.Audio.HasAudio {
		return models.AudioSegment{}, ErrNoAudio
	}

	seg := models.AudioSegment{
		ID:            a.newID(),
		SourceClipID:  clip.ID,
		SourceURL:     clip.SourceURL,
		StartTime:     clip.StartTime,
		Duration:      timeline.EffectiveDuration(clip),
		TrimStart:     clip.TrimStart,
		TrimEnd:       clip.TrimEnd,
		Volume:        clip.Audio.Volume,
		LinkedToVideo: false,
	}

	audio := clip.Audio
	audio.HasAudio = false
	if err := tl.SetClipAudio(clipID, audio); err != nil {
		return models.AudioSegment{}, fmt.Errorf("failed to detach audio: %w", err)
	}
	a.items = append(a.items, seg)
	return seg, nil
}

// Reattach restores a segment's audio to its source clip and removes the segment.
// The segment is kept if its source clip has been deleted.
func (a *AudioTrack) Reattach(tl *timeline.Timeline, segmentID string) (models.Clip, error) {
	seg, ok := a.Get(segmentID)
	if !ok {
		return models.Clip{}, ErrNotFound
	}
	clip, ok := tl.Clip(seg.SourceClipID)
	if !ok {
		return models.Clip{}, ErrSourceClipMissing
	}

	audio := clip.Audio
	audio.HasAudio = true
	audio.Volume = seg.Volume
	if err := tl.SetClipAudio(clip.ID, audio); err != nil {
		return models.Clip{}, fmt.Errorf("failed to reattach audio: %w", err)
	}
	if err := a.Delete(segmentID); err != nil {
		return models.Clip{}, err
	}

	clip, _ = tl.Clip(clip.ID)
	return clip, nil
}

// SetVolume changes a detached segment's gain
func (a *AudioTrack) SetVolume(segmentID string, volume float64) (models.AudioSegment, error) {
	if volume < 0 || volume > 1 {
		return models.AudioSegment{}, timeline.ErrInvalidVolume
	}
	return a.Update(segmentID, func(s *models.AudioSegment) {
		s.Volume = volume
	})
}
