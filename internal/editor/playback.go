package editor

import (
	"context"

	"github.com/therealutkarshpriyadarshi/timeline/internal/export"
	"github.com/therealutkarshpriyadarshi/timeline/internal/interaction"
	"github.com/therealutkarshpriyadarshi/timeline/internal/playback"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// control runs a playback command and returns the resulting state
func (s *Session) control(fn func()) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.touchLocked(); err != nil {
		return State{}, err
	}
	fn()
	s.syncLoopLocked()
	return s.stateLocked(), nil
}

// Play starts playback; at the end of the timeline it restarts from zero
func (s *Session) Play() (State, error) {
	return s.control(s.scheduler.Play)
}

// Pause stops the playhead where it is
func (s *Session) Pause() (State, error) {
	return s.control(s.scheduler.Pause)
}

// TogglePlay flips between playing and paused
func (s *Session) TogglePlay() (State, error) {
	return s.control(s.scheduler.Toggle)
}

// Seek moves the playhead, clamped to [0, total]
func (s *Session) Seek(t float64) (State, error) {
	return s.control(func() { s.scheduler.Seek(t) })
}

// ResetPlayback stops and parks the playhead at zero
func (s *Session) ResetPlayback() (State, error) {
	return s.control(s.scheduler.Reset)
}

// SetVolume sets the global gain
func (s *Session) SetVolume(v float64) (State, error) {
	return s.control(func() {
		s.scheduler.SetVolume(v)
		s.scheduler.Tick(0)
	})
}

// SetMuted sets the global mute
func (s *Session) SetMuted(muted bool) (State, error) {
	return s.control(func() {
		s.scheduler.SetMuted(muted)
		s.scheduler.Tick(0)
	})
}

// RetryDegraded forgets media failures so the clips load again
func (s *Session) RetryDegraded() (State, error) {
	return s.control(func() {
		s.scheduler.ClearDegraded()
		s.scheduler.Tick(0)
	})
}

// Tick advances the session by delta seconds. Hosts that drive their own
// frames call this instead of relying on the playback loop.
func (s *Session) Tick(delta float64) (State, error) {
	return s.control(func() { s.frameLocked(delta) })
}

func (s *Session) frameLocked(delta float64) {
	if changed, err := s.gestures.Frame(); err == nil && changed {
		if g, ok := s.gestures.Active(); ok {
			s.followScrubLocked(g)
		}
	}
	s.scheduler.Tick(delta)
}

// syncLoopLocked runs the frame loop exactly while the scheduler is playing
func (s *Session) syncLoopLocked() {
	if !s.scheduler.Playing() {
		s.stopLoopLocked()
		return
	}
	if s.loop != nil {
		return
	}

	var l *playback.Loop
	l = playback.NewLoop(s.opts.FrameRate, func(delta float64) bool {
		return s.loopFrame(l, delta)
	})
	s.loop = l
	l.Start(context.Background())
}

func (s *Session) loopFrame(l *playback.Loop, delta float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a replaced or stopped loop may still deliver one frame
	if s.loop != l || s.closed {
		return false
	}
	s.frameLocked(delta)
	if !s.scheduler.Playing() {
		s.loop = nil
		return false
	}
	return true
}

func (s *Session) stopLoopLocked() {
	if s.loop != nil {
		s.loop.Stop()
		s.loop = nil
	}
}

// Playing reports whether the playhead is advancing
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler.Playing()
}

// ExportRequest serializes the committed timeline for the render service
func (s *Session) ExportRequest(dims *models.Dimensions, companyID *string) (models.ExportRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.touchLocked(); err != nil {
		return models.ExportRequest{}, err
	}
	if s.gestures.InProgress() {
		return models.ExportRequest{}, interaction.ErrGestureActive
	}
	return export.BuildRequest(export.Input{
		Clips:        s.tl.Clips(),
		TextOverlays: s.text.Items(),
		Dimensions:   dims,
		UserID:       s.UserID,
		CompanyID:    companyID,
		ProjectName:  s.name,
	}, s.tl.Options().MinClipDuration)
}
