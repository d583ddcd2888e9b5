// Package editor binds the timeline, overlay tracks, history, gestures and
// playback of one open project into an editing session.
package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/timeline/internal/config"
	"github.com/therealutkarshpriyadarshi/timeline/internal/history"
	"github.com/therealutkarshpriyadarshi/timeline/internal/interaction"
	"github.com/therealutkarshpriyadarshi/timeline/internal/logging"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/internal/overlay"
	"github.com/therealutkarshpriyadarshi/timeline/internal/playback"
	"github.com/therealutkarshpriyadarshi/timeline/internal/project"
	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

var (
	ErrSessionNotFound = errors.New("editing session not found")
	ErrSessionClosed   = errors.New("editing session is closed")
	ErrProjectLocked   = errors.New("project is open in another session")
	ErrNoSaver         = errors.New("session has no persistence")
	ErrNoMedia         = errors.New("no media to add")
)

// Options configures the sessions of a registry
type Options struct {
	Timeline         timeline.Options
	HistoryDepth     int
	FrameRate        int
	PreloadThreshold float64
	DriftEpsilon     float64
	LoadLatency      float64
	AutoSaveDebounce time.Duration
	IdleTimeout      time.Duration
	DraftTTL         time.Duration
}

// OptionsFromConfig maps the editor configuration onto session options
func OptionsFromConfig(cfg config.EditorConfig) Options {
	return Options{
		Timeline: timeline.Options{
			MinClipDuration:     cfg.MinClipDuration,
			SplitEdgeTolerance:  cfg.SplitEdgeTolerance,
			DefaultClipDuration: cfg.DefaultClipDuration,
		},
		HistoryDepth:     cfg.HistoryDepth,
		FrameRate:        cfg.FrameRate,
		PreloadThreshold: cfg.PreloadThreshold,
		DriftEpsilon:     cfg.DriftEpsilon,
		LoadLatency:      cfg.SimulatedLoadLatency,
		AutoSaveDebounce: cfg.AutoSaveDebounce,
		IdleTimeout:      cfg.SessionIdleTimeout,
		DraftTTL:         cfg.SnapshotTTL,
	}
}

func (o Options) withDefaults() Options {
	if o.HistoryDepth <= 0 {
		o.HistoryDepth = history.DefaultMaxDepth
	}
	if o.FrameRate <= 0 {
		o.FrameRate = interaction.DefaultFrameRate
	}
	if o.AutoSaveDebounce <= 0 {
		o.AutoSaveDebounce = 2 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 30 * time.Minute
	}
	if o.DraftTTL <= 0 {
		o.DraftTTL = 24 * time.Hour
	}
	return o
}

// DraftStore keeps the latest committed snapshot of a session outside the
// process so an interrupted session can be recovered
type DraftStore interface {
	SetDraft(ctx context.Context, projectID string, snap history.Snapshot, ttl time.Duration) error
	GetDraft(ctx context.Context, projectID string) (*history.Snapshot, error)
	DeleteDraft(ctx context.Context, projectID string) error
}

// Session is one user's editing session on a project. Every method takes the
// session lock, so HTTP commands and playback frames never interleave.
type Session struct {
	ID        string
	ProjectID string
	UserID    string

	opts   Options
	logger *logging.Logger
	drafts DraftStore
	saver  *project.AutoSaver

	mu sync.Mutex

	name        string
	tl          *timeline.Timeline
	text        *overlay.TextTrack
	captions    *overlay.CaptionTrack
	audio       *overlay.AudioTrack
	scale       float64
	settings    *models.ProjectSettings
	hist        *history.History
	gestures    *interaction.Manager
	gesturePre  history.Snapshot
	scheduler   *playback.Scheduler
	primary     *playback.SimulatedPort
	secondary   *playback.SimulatedPort
	loop        *playback.Loop
	lastActive  time.Time
	lastSaved   time.Time
	lastSaveErr error
	revision    uint64
	closed      bool
}

// Deps are the optional collaborators of a session
type Deps struct {
	// ID is the session id; a new one is generated when empty
	ID     string
	Saver  project.Saver
	Drafts DraftStore
	Logger *logging.Logger
}

// NewSession opens an editing session over a loaded project
func NewSession(p *models.Project, opts Options, deps Deps) (*Session, error) {
	opts = opts.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	id := deps.ID
	if id == "" {
		id = uuid.New().String()
	}
	s := &Session{
		ID:         id,
		ProjectID:  p.ID,
		UserID:     p.UserID,
		opts:       opts,
		drafts:     deps.Drafts,
		name:       p.Name,
		hist:       history.New(opts.HistoryDepth),
		lastActive: time.Now(),
	}
	s.logger = logger.WithSessionID(s.ID).WithProjectID(p.ID)

	newID := opts.Timeline.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	s.tl = timeline.New(opts.Timeline)
	s.text = overlay.NewTextTrack(newID)
	s.captions = overlay.NewCaptionTrack(newID)
	s.audio = overlay.NewAudioTrack(newID)

	data := project.Normalize(p.Data)
	s.load(data)
	if err := s.hist.Reset(s.snapshotLocked()); err != nil {
		return nil, err
	}

	s.gestures = interaction.NewManager(s.resolveGesture, s.commitGesture, interaction.NewThrottle(opts.FrameRate))

	s.primary = playback.NewSimulatedPort(opts.LoadLatency)
	s.secondary = playback.NewSimulatedPort(opts.LoadLatency)
	s.scheduler = playback.NewScheduler(s.playbackClips, s.primary, s.secondary, playback.Options{
		PreloadThreshold: opts.PreloadThreshold,
		DriftEpsilon:     opts.DriftEpsilon,
		Observer:         &observer{logger: s.logger, sessionID: s.ID},
	})
	s.scheduler.Reset()

	if deps.Saver != nil {
		s.saver = project.NewAutoSaver(deps.Saver, p.ID, p.UserID, opts.AutoSaveDebounce, s.onSaved, s.logger)
	}

	metrics.RecordSessionOpened()
	s.logger.Infof("Opened session with %d clips", s.tl.Len())
	return s, nil
}

func (s *Session) load(data models.ProjectData) {
	s.tl.Replace(data.Clips)
	s.text.Replace(data.TextOverlays)
	s.captions.Replace(data.Captions)
	s.audio.Replace(data.AudioSegments)
	if data.CaptionStyle != nil {
		s.captions.Style = *data.CaptionStyle
	}
	s.scale = project.ClampScale(data.TimelineScale)
	s.settings = data.Settings
}

// playbackClips is the scheduler's view: committed clips with the active
// gesture's draft applied
func (s *Session) playbackClips() []models.Clip {
	return s.gestures.Override(s.tl.Clips())
}

func (s *Session) snapshotLocked() history.Snapshot {
	return history.Snapshot{
		Clips:         s.tl.Clips(),
		TextOverlays:  s.text.Items(),
		Captions:      s.captions.Items(),
		AudioSegments: s.audio.Items(),
	}
}

func (s *Session) restoreLocked(snap history.Snapshot) {
	s.tl.Replace(snap.Clips)
	s.text.Replace(snap.TextOverlays)
	s.captions.Replace(snap.Captions)
	s.audio.Replace(snap.AudioSegments)
	// the playhead may now be past the end
	s.scheduler.Seek(s.scheduler.State().CurrentTime)
}

func (s *Session) dataLocked() models.ProjectData {
	style := s.captions.Style
	return models.ProjectData{
		Clips:         s.tl.Clips(),
		TextOverlays:  s.text.Items(),
		Captions:      s.captions.Items(),
		AudioSegments: s.audio.Items(),
		CaptionStyle:  &style,
		TimelineScale: s.scale,
		Settings:      s.settings,
		Version:       models.ProjectDataVersion,
	}
}

// touch marks activity and refuses work on a closed session
func (s *Session) touchLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.lastActive = time.Now()
	return nil
}

// changedLocked runs after every committed change: it records history,
// schedules persistence and mirrors the draft into the cache
func (s *Session) changedLocked(op string, recordHistory bool) {
	s.revision++
	snap := s.snapshotLocked()
	if recordHistory {
		if _, err := s.hist.Observe(snap); err != nil {
			s.logger.WithError(err).Warn("Failed to record history")
		}
	}
	s.persistLocked(snap)
	metrics.RecordEdit(op, false)
	s.logger.LogEditEvent(s.ID, op, s.tl.Len(), s.tl.TotalDuration(), nil)
}

func (s *Session) persistLocked(snap history.Snapshot) {
	if s.saver != nil {
		s.saver.Schedule(s.dataLocked())
	}
	if s.drafts != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.drafts.SetDraft(ctx, s.ProjectID, snap, s.opts.DraftTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache draft")
		}
	}
}

func (s *Session) rejectedLocked(op string, err error) error {
	metrics.RecordEdit(op, true)
	s.logger.LogEditEvent(s.ID, op, s.tl.Len(), s.tl.TotalDuration(), err)
	return err
}

func (s *Session) onSaved(savedAt time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSaveErr = err
	if err == nil {
		s.lastSaved = savedAt
	}
}

// State is the client view of a session
type State struct {
	SessionID     string                  `json:"session_id"`
	ProjectID     string                  `json:"project_id"`
	Name          string                  `json:"name"`
	Revision      uint64                  `json:"revision"`
	Clips         []models.Clip           `json:"clips"`
	TextOverlays  []models.TextOverlay    `json:"text_overlays"`
	Captions      []models.CaptionSegment `json:"captions"`
	AudioSegments []models.AudioSegment   `json:"audio_segments"`
	CaptionStyle  models.CaptionStyle     `json:"caption_style"`
	TotalDuration float64                 `json:"total_duration"`
	TimelineScale float64                 `json:"timeline_scale"`
	Playback      models.PlaybackState    `json:"playback"`
	Volume        float64                 `json:"volume"`
	Muted         bool                    `json:"muted"`
	Degraded      []string                `json:"degraded_clips,omitempty"`
	ActiveText    []models.TextOverlay    `json:"active_text_overlays,omitempty"`
	ActiveCaption []models.CaptionSegment `json:"active_captions,omitempty"`
	Gesture       *interaction.Session    `json:"gesture,omitempty"`
	CanUndo       bool                    `json:"can_undo"`
	CanRedo       bool                    `json:"can_redo"`
	LastSavedAt   *time.Time              `json:"last_saved_at,omitempty"`
	SaveError     string                  `json:"save_error,omitempty"`
}

// State returns the session as the client should render it. Clips and
// overlays include the draft of an in-flight gesture.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	pb := s.scheduler.State()
	vol, muted := s.scheduler.Volume()
	clips := s.playbackClips()
	texts := s.text.Items()
	captions := s.captions.Items()

	st := State{
		SessionID:     s.ID,
		ProjectID:     s.ProjectID,
		Name:          s.name,
		Revision:      s.revision,
		Clips:         clips,
		TextOverlays:  texts,
		Captions:      captions,
		AudioSegments: s.audio.Items(),
		CaptionStyle:  s.captions.Style,
		TotalDuration: timeline.TotalDuration(clips),
		TimelineScale: s.scale,
		Playback:      pb,
		Volume:        vol,
		Muted:         muted,
		Degraded:      s.scheduler.Degraded(),
		ActiveText:    s.text.ActiveAt(pb.CurrentTime),
		ActiveCaption: s.captions.ActiveAt(pb.CurrentTime),
		CanUndo:       s.hist.CanUndo(),
		CanRedo:       s.hist.CanRedo(),
	}
	if g, ok := s.gestures.Active(); ok {
		st.Gesture = &g
		if g.Draft.Span != nil {
			applySpan(&st, g.EntityID, *g.Draft.Span)
		}
	}
	if !s.lastSaved.IsZero() {
		t := s.lastSaved
		st.LastSavedAt = &t
	}
	if s.lastSaveErr != nil {
		st.SaveError = s.lastSaveErr.Error()
	}
	return st
}

// applySpan shows an overlay gesture's draft range in the state view
func applySpan(st *State, id string, span overlay.Span) {
	for i := range st.TextOverlays {
		if st.TextOverlays[i].ID == id {
			st.TextOverlays[i].StartTime = span.Start
			st.TextOverlays[i].Duration = span.Duration()
			return
		}
	}
	for i := range st.Captions {
		if st.Captions[i].ID == id {
			st.Captions[i].StartTime = span.Start
			st.Captions[i].EndTime = span.End
			return
		}
	}
}

// Data returns the committed project document
func (s *Session) Data() models.ProjectData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataLocked()
}

// Name returns the project name the session was opened with
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// LastActive returns when the session last handled a command
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Save persists the committed state now, optionally renaming the project
func (s *Session) Save(ctx context.Context, saver project.Saver, name *string) (time.Time, error) {
	s.mu.Lock()
	if err := s.touchLocked(); err != nil {
		s.mu.Unlock()
		return time.Time{}, err
	}
	data := s.dataLocked()
	if name != nil {
		s.name = *name
	}
	autosaver := s.saver
	s.mu.Unlock()

	if saver == nil {
		return time.Time{}, ErrNoSaver
	}
	// let an in-flight autosave of older state finish first
	if autosaver != nil {
		_ = autosaver.Flush(ctx)
	}
	savedAt, err := saver.Save(ctx, s.ProjectID, s.UserID, name, data)
	s.onSaved(savedAt, err)
	return savedAt, err
}

// Close stops playback, flushes pending saves and clears the cached draft
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopLoopLocked()
	s.scheduler.Pause()
	s.gestures.Cancel()
	autosaver := s.saver
	s.mu.Unlock()

	var err error
	if autosaver != nil {
		err = autosaver.Close(ctx)
	}
	if err == nil && s.drafts != nil {
		if derr := s.drafts.DeleteDraft(ctx, s.ProjectID); derr != nil {
			s.logger.WithError(derr).Warn("Failed to clear draft")
		}
	}

	metrics.RecordSessionClosed()
	s.logger.Info("Closed session")
	return err
}

// observer forwards scheduler events to metrics and the session log
type observer struct {
	logger    *logging.Logger
	sessionID string
}

func (o *observer) Preloaded(clipID string) {
	metrics.PlaybackObserver{}.Preloaded(clipID)
	o.logger.LogPlaybackEvent(o.sessionID, "preload", clipID, nil)
}

func (o *observer) Handoff(warm bool) {
	metrics.PlaybackObserver{}.Handoff(warm)
	o.logger.LogPlaybackEvent(o.sessionID, "handoff", "", map[string]interface{}{"warm": warm})
}

func (o *observer) Degraded(clipID string, err error) {
	metrics.PlaybackObserver{}.Degraded(clipID, err)
	o.logger.LogPlaybackEvent(o.sessionID, "degraded", clipID, map[string]interface{}{"error": err.Error()})
}
