package editor

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/timeline/internal/history"
	"github.com/therealutkarshpriyadarshi/timeline/internal/interaction"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/internal/overlay"
	"github.com/therealutkarshpriyadarshi/timeline/internal/project"
	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// edit runs a discrete change to the committed model. Edits are refused while
// a gesture is in flight; a failed edit leaves the model untouched.
func (s *Session) edit(op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.touchLocked(); err != nil {
		return err
	}
	if s.gestures.InProgress() {
		return s.rejectedLocked(op, interaction.ErrGestureActive)
	}
	if err := fn(); err != nil {
		return s.rejectedLocked(op, err)
	}
	s.changedLocked(op, true)
	return nil
}

// AddClips appends clips for the given sources at the end of the timeline
func (s *Session) AddClips(sources []models.MediaSource) ([]models.Clip, error) {
	var added []models.Clip
	err := s.edit("add_clips", func() error {
		if len(sources) == 0 {
			return ErrNoMedia
		}
		added = s.tl.AddClips(sources)
		return nil
	})
	return added, err
}

// DeleteClip removes a clip and closes the gap
func (s *Session) DeleteClip(id string) error {
	return s.edit("delete_clip", func() error {
		return s.tl.Delete(id)
	})
}

// TrimClip moves one edge of a clip to a timeline time in a single step
func (s *Session) TrimClip(id string, edge timeline.Edge, target float64) (models.Clip, error) {
	var clip models.Clip
	err := s.edit("trim_clip", func() error {
		var err error
		clip, err = s.tl.Trim(id, edge, target)
		return err
	})
	return clip, err
}

// SplitClip cuts a clip at a timeline time
func (s *Session) SplitClip(id string, at float64) (models.Clip, models.Clip, error) {
	var a, b models.Clip
	err := s.edit("split_clip", func() error {
		var err error
		a, b, err = s.tl.Split(id, at)
		return err
	})
	return a, b, err
}

// SplitAtPlayhead cuts whichever clip is under the playhead
func (s *Session) SplitAtPlayhead() (models.Clip, models.Clip, error) {
	var a, b models.Clip
	err := s.edit("split_clip", func() error {
		at := s.scheduler.State().CurrentTime
		clip, _, ok := timeline.ActiveClipAt(s.tl.Clips(), at)
		if !ok {
			return fmt.Errorf("split at %.2fs: %w", at, timeline.ErrSplitOutsideClip)
		}
		var err error
		a, b, err = s.tl.Split(clip.ID, at)
		return err
	})
	return a, b, err
}

// MoveClip places a clip at an index in one step
func (s *Session) MoveClip(id string, index int) error {
	return s.edit("move_clip", func() error {
		return s.tl.Move(id, index)
	})
}

// SetTransition sets or clears the transition into the next clip
func (s *Session) SetTransition(id, kind string, duration float64) (*models.Transition, error) {
	var tr *models.Transition
	err := s.edit("set_transition", func() error {
		var err error
		tr, err = s.tl.SetTransition(id, kind, duration)
		return err
	})
	return tr, err
}

// SetClipVolume sets a clip's own gain
func (s *Session) SetClipVolume(id string, volume float64) error {
	return s.edit("clip_volume", func() error {
		return s.tl.SetClipVolume(id, volume)
	})
}

// ToggleClipMute flips a clip's mute and returns the new value
func (s *Session) ToggleClipMute(id string) (bool, error) {
	var muted bool
	err := s.edit("clip_mute", func() error {
		var err error
		muted, err = s.tl.ToggleClipMute(id)
		return err
	})
	return muted, err
}

// DetachAudio moves a clip's audio onto the audio track
func (s *Session) DetachAudio(clipID string) (models.AudioSegment, error) {
	var seg models.AudioSegment
	err := s.edit("detach_audio", func() error {
		var err error
		seg, err = s.audio.Detach(s.tl, clipID)
		return err
	})
	return seg, err
}

// ReattachAudio gives a detached segment back to its clip
func (s *Session) ReattachAudio(segmentID string) (models.Clip, error) {
	var clip models.Clip
	err := s.edit("reattach_audio", func() error {
		var err error
		clip, err = s.audio.Reattach(s.tl, segmentID)
		return err
	})
	return clip, err
}

// SetSegmentVolume changes a detached segment's gain
func (s *Session) SetSegmentVolume(segmentID string, volume float64) (models.AudioSegment, error) {
	var seg models.AudioSegment
	err := s.edit("segment_volume", func() error {
		var err error
		seg, err = s.audio.SetVolume(segmentID, volume)
		return err
	})
	return seg, err
}

// DeleteAudioSegment drops a detached segment. Its clip stays silent.
func (s *Session) DeleteAudioSegment(segmentID string) error {
	return s.edit("delete_segment", func() error {
		return s.audio.Delete(segmentID)
	})
}

// AddText creates a text overlay at the playhead, or at a given time
func (s *Session) AddText(text string, at *float64) (models.TextOverlay, error) {
	var o models.TextOverlay
	err := s.edit("add_text", func() error {
		t := s.scheduler.State().CurrentTime
		if at != nil {
			t = *at
		}
		o = s.text.AddAt(text, t, s.tl.TotalDuration())
		return nil
	})
	return o, err
}

// InsertText adds a fully specified text overlay
func (s *Session) InsertText(o models.TextOverlay) (models.TextOverlay, error) {
	err := s.edit("add_text", func() error {
		o = s.text.Insert(o)
		return nil
	})
	return o, err
}

// UpdateText applies a partial update to a text overlay
func (s *Session) UpdateText(id string, p overlay.TextPatch) (models.TextOverlay, error) {
	var o models.TextOverlay
	err := s.edit("update_text", func() error {
		var err error
		o, err = s.text.Patch(id, p)
		return err
	})
	return o, err
}

// DeleteText removes a text overlay
func (s *Session) DeleteText(id string) error {
	return s.edit("delete_text", func() error {
		return s.text.Delete(id)
	})
}

// DuplicateText copies a text overlay
func (s *Session) DuplicateText(id string) (models.TextOverlay, error) {
	var o models.TextOverlay
	err := s.edit("duplicate_text", func() error {
		var err error
		o, err = s.text.Duplicate(id)
		return err
	})
	return o, err
}

// AddCaption creates a caption at the playhead, or at a given time
func (s *Session) AddCaption(text string, at *float64) (models.CaptionSegment, error) {
	var c models.CaptionSegment
	err := s.edit("add_caption", func() error {
		t := s.scheduler.State().CurrentTime
		if at != nil {
			t = *at
		}
		c = s.captions.AddAt(text, t, s.tl.TotalDuration())
		return nil
	})
	return c, err
}

// UpdateCaption applies a partial update to a caption
func (s *Session) UpdateCaption(id string, p overlay.CaptionPatch) (models.CaptionSegment, error) {
	var c models.CaptionSegment
	err := s.edit("update_caption", func() error {
		var err error
		c, err = s.captions.Patch(id, p)
		return err
	})
	return c, err
}

// DeleteCaption removes a caption
func (s *Session) DeleteCaption(id string) error {
	return s.edit("delete_caption", func() error {
		return s.captions.Delete(id)
	})
}

// DuplicateCaption copies a caption right after the original
func (s *Session) DuplicateCaption(id string) (models.CaptionSegment, error) {
	var c models.CaptionSegment
	err := s.edit("duplicate_caption", func() error {
		var err error
		c, err = s.captions.Duplicate(id)
		return err
	})
	return c, err
}

// SetCaptionStyle replaces the track-wide caption style. It is saved with the
// project but is not part of the undo history.
func (s *Session) SetCaptionStyle(style models.CaptionStyle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.touchLocked(); err != nil {
		return err
	}
	s.captions.Style = style
	s.persistLocked(s.snapshotLocked())
	return nil
}

// ClearAll empties every track and parks the playhead at zero
func (s *Session) ClearAll() error {
	return s.edit("clear_all", func() error {
		s.stopLoopLocked()
		s.tl.Clear()
		s.text.Replace(nil)
		s.captions.Replace(nil)
		s.audio.Replace(nil)
		s.scheduler.Reset()
		return nil
	})
}

// Undo restores the previous snapshot. It reports false at the oldest entry.
func (s *Session) Undo() (bool, error) {
	return s.travel("undo", s.hist.Undo)
}

// Redo restores the next snapshot. It reports false at the newest entry.
func (s *Session) Redo() (bool, error) {
	return s.travel("redo", s.hist.Redo)
}

func (s *Session) travel(op string, step func() (history.Snapshot, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.touchLocked(); err != nil {
		return false, err
	}
	if s.gestures.InProgress() {
		return false, interaction.ErrGestureActive
	}

	snap, err := step()
	metrics.RecordHistory(op, err == nil)
	if err != nil {
		// boundaries are no-ops
		return false, nil
	}
	s.restoreLocked(snap)
	// the restore itself is swallowed by the history's suppression flag
	s.changedLocked(op, true)
	return true, nil
}

// Recover replaces the session content with a draft left by an interrupted
// session. The loaded state stays one undo away.
func (s *Session) Recover(snap history.Snapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := history.Sum(s.snapshotLocked())
	if err != nil {
		return false, err
	}
	draft, err := history.Sum(snap)
	if err != nil {
		return false, err
	}
	if current == draft {
		return false, nil
	}
	s.restoreLocked(snap)
	s.changedLocked("recover", true)
	return true, nil
}

// SetScale sets the timeline zoom, snapped to the supported steps
func (s *Session) SetScale(scale float64) (float64, error) {
	return s.rescale(func(float64) float64 { return project.ClampScale(scale) })
}

// ZoomIn moves the timeline zoom one step in
func (s *Session) ZoomIn() (float64, error) {
	return s.rescale(project.ZoomIn)
}

// ZoomOut moves the timeline zoom one step out
func (s *Session) ZoomOut() (float64, error) {
	return s.rescale(project.ZoomOut)
}

func (s *Session) rescale(fn func(float64) float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.touchLocked(); err != nil {
		return s.scale, err
	}
	next := fn(s.scale)
	if next != s.scale {
		s.scale = next
		if s.saver != nil {
			s.saver.Schedule(s.dataLocked())
		}
	}
	return s.scale, nil
}
