package editor

import (
	"errors"
	"math"

	"github.com/therealutkarshpriyadarshi/timeline/internal/history"
	"github.com/therealutkarshpriyadarshi/timeline/internal/interaction"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/internal/overlay"
	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
)

// BeginGesture starts a drag. Until it ends the committed model is untouched;
// readers see the draft through the session state and the scheduler.
func (s *Session) BeginGesture(kind interaction.Kind, entityID string, origin float64) (interaction.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.touchLocked(); err != nil {
		return interaction.Session{}, err
	}

	pre := s.snapshotLocked()
	g, err := s.gestures.Begin(kind, entityID, origin)
	if err != nil {
		metrics.RecordGesture(string(kind), "rejected")
		return g, err
	}
	if kind != interaction.KindScrub {
		s.gesturePre = pre
		s.hist.SetGestureActive(true)
	}
	s.followScrubLocked(g)
	return g, nil
}

// PointerMove feeds the latest pointer time into the active gesture
func (s *Session) PointerMove(t float64) (interaction.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.touchLocked(); err != nil {
		return interaction.Session{}, err
	}
	g, err := s.gestures.Pointer(t)
	if err != nil {
		return g, err
	}
	s.followScrubLocked(g)
	return g, nil
}

// EndGesture commits the active gesture as one undoable step
func (s *Session) EndGesture() (interaction.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.touchLocked(); err != nil {
		return interaction.Session{}, err
	}
	g, err := s.gestures.End()
	s.hist.SetGestureActive(false)
	s.gesturePre = history.Snapshot{}

	switch {
	case errors.Is(err, interaction.ErrNoGesture):
		return g, err
	case err != nil:
		metrics.RecordGesture(string(g.Kind), "failed")
		return g, s.rejectedLocked(string(g.Kind), err)
	}
	metrics.RecordGesture(string(g.Kind), "committed")
	return g, nil
}

// CancelGesture drops the active gesture. Nothing was committed, so nothing
// needs to be reverted.
func (s *Session) CancelGesture() (interaction.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gestures.Cancel()
	s.hist.SetGestureActive(false)
	s.gesturePre = history.Snapshot{}
	if ok {
		metrics.RecordGesture(string(g.Kind), "cancelled")
	}
	return g, ok
}

// followScrubLocked moves the playhead along with a scrub. It runs outside
// the manager callbacks because seeking reads clips through the manager.
func (s *Session) followScrubLocked(g interaction.Session) {
	if g.Kind == interaction.KindScrub {
		s.scheduler.Seek(g.Draft.Playhead)
	}
}

// resolveGesture computes the draft for a pointer position. It is called by
// the interaction manager with the session lock already held.
func (s *Session) resolveGesture(g interaction.Session) (interaction.Draft, error) {
	playhead := s.scheduler.State().CurrentTime

	switch g.Kind {
	case interaction.KindMove:
		c, ok := s.tl.Clip(g.EntityID)
		if !ok {
			return interaction.Draft{}, timeline.ErrClipNotFound
		}
		idx, dropOK := s.tl.DropIndex(g.EntityID, g.Pointer)
		return interaction.Draft{
			Clip: &timeline.TrimDraft{
				ClipID:    c.ID,
				StartTime: math.Max(0, c.StartTime+g.Delta()),
				TrimStart: c.TrimStart,
				TrimEnd:   c.TrimEnd,
			},
			Playhead:  playhead,
			DropIndex: idx,
			DropOK:    dropOK,
		}, nil

	case interaction.KindTrimStart, interaction.KindTrimEnd:
		c, ok := s.tl.Clip(g.EntityID)
		if !ok {
			return interaction.Draft{}, timeline.ErrClipNotFound
		}
		edge, target := timeline.EdgeStart, c.StartTime+g.Delta()
		if g.Kind == interaction.KindTrimEnd {
			edge, target = timeline.EdgeEnd, timeline.EndTime(c)+g.Delta()
		}
		d, err := s.tl.PreviewTrim(c.ID, edge, target)
		if err != nil {
			return interaction.Draft{}, err
		}
		return interaction.Draft{Clip: &d, Playhead: playhead}, nil

	case interaction.KindScrub:
		total := s.tl.TotalDuration()
		return interaction.Draft{Playhead: math.Max(0, math.Min(g.Pointer, total))}, nil

	default:
		rules, span, ok := s.overlaySpanLocked(g.EntityID)
		if !ok {
			return interaction.Draft{}, overlay.ErrNotFound
		}
		var next overlay.Span
		switch g.Kind {
		case interaction.KindOverlayMove:
			next = rules.Move(span, g.Delta())
		case interaction.KindOverlayResizeStart:
			next = rules.ResizeStart(span, g.Delta())
		default:
			next = rules.ResizeEnd(span, g.Delta())
		}
		return interaction.Draft{Span: &next, Playhead: playhead}, nil
	}
}

// overlaySpanLocked finds a text overlay or caption and its gesture rules
func (s *Session) overlaySpanLocked(id string) (overlay.GestureRules, overlay.Span, bool) {
	if span, ok := s.text.Span(id); ok {
		return overlay.TextGestureRules, span, true
	}
	if span, ok := s.captions.Span(id); ok {
		return overlay.CaptionGestureRules, span, true
	}
	return overlay.GestureRules{}, overlay.Span{}, false
}

// commitGesture writes a finished gesture. It is called once per gesture by
// the interaction manager, with the session lock held.
func (s *Session) commitGesture(g interaction.Session) error {
	var err error
	switch g.Kind {
	case interaction.KindScrub:
		s.scheduler.Seek(g.Draft.Playhead)
		return nil
	case interaction.KindMove:
		err = s.tl.CommitReorder(g.EntityID, g.Draft.DropIndex, g.Draft.DropOK)
	case interaction.KindTrimStart, interaction.KindTrimEnd:
		if g.Draft.Clip == nil {
			return timeline.ErrClipNotFound
		}
		err = s.tl.CommitTrim(g.EntityID, g.Draft.Clip.TrimStart, g.Draft.Clip.TrimEnd)
	default:
		if g.Draft.Span == nil {
			return overlay.ErrNotFound
		}
		if _, ok := s.text.Get(g.EntityID); ok {
			_, err = s.text.SetSpan(g.EntityID, *g.Draft.Span)
		} else {
			_, err = s.captions.SetSpan(g.EntityID, *g.Draft.Span)
		}
	}
	if err != nil {
		return err
	}

	if err := s.hist.CommitGesture(s.gesturePre, s.snapshotLocked()); err != nil {
		s.logger.WithError(err).Warn("Failed to record gesture")
	}
	s.changedLocked(string(g.Kind), false)
	return nil
}
