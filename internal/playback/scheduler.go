package playback

import (
	"math"
	"sort"

	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

const (
	// DefaultPreloadThreshold is how close to a clip's end the next clip starts loading
	DefaultPreloadThreshold = 2.0
	// DefaultDriftEpsilon is the paused position error tolerated before reseeking
	DefaultDriftEpsilon = 0.1

	boundEpsilon = 1e-6
)

// Options tunes the scheduler
type Options struct {
	PreloadThreshold float64
	DriftEpsilon     float64
	Observer         Observer
}

// ClipSource returns the clips playback should follow, with any in-flight
// gesture overrides already applied
type ClipSource func() []models.Clip

// Scheduler drives one virtual playhead across a sequence of clips using a
// primary port for playback and a secondary port for preloading the next clip.
// It never mutates the clips it reads. It is not safe for concurrent use.
type Scheduler struct {
	clips     ClipSource
	primary   MediaPort
	secondary MediaPort
	opts      Options

	playing  bool
	current  float64
	activeID string

	// loadedID is the clip the primary port is bound to
	loadedID string
	gen      uint64

	// preloadID is the clip loading or loaded on the secondary port
	preloadID  string
	preloadGen uint64

	degraded map[string]error
	volume   float64
	muted    bool
}

// NewScheduler binds a scheduler to its clip source and two ports
func NewScheduler(clips ClipSource, primary, secondary MediaPort, opts Options) *Scheduler {
	if opts.PreloadThreshold <= 0 {
		opts.PreloadThreshold = DefaultPreloadThreshold
	}
	if opts.DriftEpsilon <= 0 {
		opts.DriftEpsilon = DefaultDriftEpsilon
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	secondary.SetMuted(true)
	return &Scheduler{
		clips:     clips,
		primary:   primary,
		secondary: secondary,
		opts:      opts,
		degraded:  make(map[string]error),
		volume:    1,
	}
}

// State returns the playhead state
func (s *Scheduler) State() models.PlaybackState {
	return models.PlaybackState{
		Playing:      s.playing,
		CurrentTime:  s.current,
		ActiveClipID: s.activeID,
	}
}

// Playing reports whether the playhead is advancing
func (s *Scheduler) Playing() bool {
	return s.playing
}

// Degraded returns the ids of clips whose media failed to load
func (s *Scheduler) Degraded() []string {
	ids := make([]string, 0, len(s.degraded))
	for id := range s.degraded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tick advances the playhead by delta seconds and brings the ports in line
// with it. It is called once per frame.
func (s *Scheduler) Tick(delta float64) {
	for _, p := range []MediaPort{s.primary, s.secondary} {
		if st, ok := p.(Stepper); ok {
			st.Step(delta)
		}
	}

	clips := s.clips()
	if len(clips) == 0 {
		s.stop()
		s.current = 0
		s.activeID = ""
		return
	}

	if s.playing {
		s.current += delta
	}
	total := timeline.TotalDuration(clips)
	if s.current >= total {
		if s.playing {
			s.stop()
			s.current = 0
		} else {
			s.current = total
		}
	}

	clip, idx, ok := timeline.ActiveClipAt(clips, s.current)
	if !ok {
		// paused exactly at the end
		idx = len(clips) - 1
		clip = clips[idx]
	}
	s.activeID = clip.ID

	if clip.ID != s.loadedID {
		s.switchTo(clip)
	}
	s.applyVolume(clip)
	s.enforceBounds(clip)
	s.preload(clips, idx)
	if !s.playing {
		s.syncDrift(clip)
	}
}

// sourceOffset maps the playhead to a position inside the clip's source
func (s *Scheduler) sourceOffset(c models.Clip) float64 {
	from, to := timeline.SourceWindow(c)
	return math.Max(from, math.Min(to, c.TrimStart+(s.current-c.StartTime)))
}

func (s *Scheduler) switchTo(clip models.Clip) {
	s.gen++
	gen := s.gen
	s.loadedID = clip.ID

	if _, bad := s.degraded[clip.ID]; bad {
		s.primary.Pause()
		return
	}

	if s.preloadID == clip.ID && s.secondary.Source() == clip.SourceURL {
		s.primary.Pause()
		s.primary.SetMuted(true)
		s.primary, s.secondary = s.secondary, s.primary
		s.preloadID = ""
		s.opts.Observer.Handoff(true)
	} else {
		if s.preloadID == clip.ID {
			s.preloadID = ""
		}
		s.primary.Pause()
		s.primary.Load(clip.SourceURL)
		s.primary.OnError(func(err error) {
			if gen == s.gen {
				s.markDegraded(clip.ID, err)
			}
		})
		s.opts.Observer.Handoff(false)
	}

	port := s.primary
	port.OnReady(func() {
		if gen != s.gen {
			return
		}
		port.Seek(s.sourceOffset(clip))
		if s.playing {
			port.Play()
		}
	})
}

func (s *Scheduler) preload(clips []models.Clip, idx int) {
	if idx+1 >= len(clips) {
		return
	}
	next := clips[idx+1]
	if timeline.EndTime(clips[idx])-s.current >= s.opts.PreloadThreshold {
		return
	}
	if next.ID == s.preloadID || next.ID == s.loadedID {
		return
	}
	if _, bad := s.degraded[next.ID]; bad {
		return
	}

	s.preloadGen++
	pgen := s.preloadGen
	s.preloadID = next.ID

	port := s.secondary
	port.SetMuted(true)
	port.Load(next.SourceURL)
	port.OnReady(func() {
		if pgen == s.preloadGen && s.preloadID == next.ID {
			port.Seek(next.TrimStart)
		}
	})
	port.OnError(func(err error) {
		if pgen == s.preloadGen {
			s.markDegraded(next.ID, err)
		}
	})
	s.opts.Observer.Preloaded(next.ID)
}

func (s *Scheduler) markDegraded(clipID string, err error) {
	s.degraded[clipID] = err
	if s.preloadID == clipID {
		s.preloadID = ""
	}
	if s.loadedID == clipID {
		s.primary.Pause()
	}
	s.opts.Observer.Degraded(clipID, err)
}

// enforceBounds pauses the primary when it reaches the trimmed end. The
// virtual playhead keeps going and the next clip takes over at the boundary.
func (s *Scheduler) enforceBounds(clip models.Clip) {
	if _, bad := s.degraded[clip.ID]; bad || !s.primary.Ready() {
		return
	}
	from, to := timeline.SourceWindow(clip)
	pos := s.primary.CurrentPosition()
	if pos >= to-boundEpsilon {
		if !s.primary.Paused() {
			s.primary.Pause()
		}
		return
	}
	if pos < from-boundEpsilon {
		s.primary.Seek(from)
	}
}

func (s *Scheduler) syncDrift(clip models.Clip) {
	if _, bad := s.degraded[clip.ID]; bad || !s.primary.Ready() {
		return
	}
	expected := s.sourceOffset(clip)
	if math.Abs(s.primary.CurrentPosition()-expected) > s.opts.DriftEpsilon {
		s.primary.Seek(expected)
	}
}

func (s *Scheduler) applyVolume(clip models.Clip) {
	v := s.volume * clip.Audio.Volume
	muted := s.muted || clip.Audio.Muted || !clip.Audio.HasAudio || v == 0
	s.primary.SetVolume(v)
	s.primary.SetMuted(muted)
}

func (s *Scheduler) stop() {
	s.playing = false
	s.primary.Pause()
}

// Play starts the playhead, restarting from zero when parked at the end
func (s *Scheduler) Play() {
	clips := s.clips()
	total := timeline.TotalDuration(clips)
	if total <= 0 {
		return
	}
	if s.current >= total-boundEpsilon {
		s.current = 0
	}
	s.playing = true
	s.Tick(0)
	if !s.playing {
		return
	}
	if _, bad := s.degraded[s.loadedID]; bad {
		return
	}
	if s.primary.Ready() {
		if c, ok := findClip(clips, s.loadedID); ok {
			if s.primary.CurrentPosition() < c.SourceDuration-c.TrimEnd-boundEpsilon {
				s.primary.Play()
			}
		}
	}
}

// Pause stops the playhead where it is
func (s *Scheduler) Pause() {
	s.stop()
	s.Tick(0)
}

// Toggle flips between playing and paused
func (s *Scheduler) Toggle() {
	if s.playing {
		s.Pause()
		return
	}
	s.Play()
}

// Seek moves the playhead, clamped to the timeline
func (s *Scheduler) Seek(t float64) {
	total := timeline.TotalDuration(s.clips())
	s.current = math.Max(0, math.Min(t, total))

	before := s.loadedID
	s.Tick(0)
	if s.loadedID != before || !s.primary.Ready() {
		return
	}
	if c, ok := findClip(s.clips(), s.loadedID); ok {
		if _, bad := s.degraded[c.ID]; !bad {
			s.primary.Seek(s.sourceOffset(c))
		}
	}
}

// Reset stops playback and parks the playhead at zero
func (s *Scheduler) Reset() {
	s.stop()
	s.current = 0
	s.Tick(0)
}

// SetVolume sets the global gain in [0,1]
func (s *Scheduler) SetVolume(v float64) {
	s.volume = math.Max(0, math.Min(1, v))
}

// SetMuted sets the global mute
func (s *Scheduler) SetMuted(muted bool) {
	s.muted = muted
}

// Volume returns the global gain and mute
func (s *Scheduler) Volume() (float64, bool) {
	return s.volume, s.muted
}

// ClearDegraded forgets load failures so the clips are retried
func (s *Scheduler) ClearDegraded() {
	s.degraded = make(map[string]error)
	s.loadedID = ""
}

func findClip(clips []models.Clip, id string) (models.Clip, bool) {
	for _, c := range clips {
		if c.ID == id {
			return c, true
		}
	}
	return models.Clip{}, false
}
