package playback

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

type countingObserver struct {
	preloads []string
	warm     int
	cold     int
	degraded []string
}

func (o *countingObserver) Preloaded(id string) { o.preloads = append(o.preloads, id) }

func (o *countingObserver) Handoff(warm bool) {
	if warm {
		o.warm++
		return
	}
	o.cold++
}

func (o *countingObserver) Degraded(id string, _ error) { o.degraded = append(o.degraded, id) }

func twoClips() []models.Clip {
	return []models.Clip{
		{ID: "a", SourceURL: "https://media.example.com/a.mp4", SourceDuration: 5, StartTime: 0, Audio: models.DefaultAudioInfo()},
		{ID: "b", SourceURL: "https://media.example.com/b.mp4", SourceDuration: 5, StartTime: 5, Audio: models.DefaultAudioInfo()},
	}
}

func newTestScheduler(clips []models.Clip, latency float64) (*Scheduler, *SimulatedPort, *SimulatedPort, *countingObserver) {
	primary := NewSimulatedPort(latency)
	secondary := NewSimulatedPort(latency)
	obs := &countingObserver{}
	s := NewScheduler(func() []models.Clip { return clips }, primary, secondary, Options{Observer: obs})
	return s, primary, secondary, obs
}

func countLoads(p *SimulatedPort, url string) int {
	n := 0
	for _, l := range p.Loads {
		if l == url {
			n++
		}
	}
	return n
}

func TestPreloadOnceAndWarmHandoff(t *testing.T) {
	clips := twoClips()
	s, primary, secondary, obs := newTestScheduler(clips, 0.2)

	s.Play()
	require.True(t, s.Playing())
	assert.Equal(t, []string{clips[0].SourceURL}, primary.Loads)

	for s.State().CurrentTime < 4.75 {
		s.Tick(0.25)
	}
	assert.Equal(t, 1, countLoads(secondary, clips[1].SourceURL), "next clip is preloaded exactly once")
	assert.Equal(t, []string{"b"}, obs.preloads)
	assert.True(t, secondary.Ready())
	assert.Equal(t, "a", s.State().ActiveClipID)

	s.Tick(0.25)
	state := s.State()
	assert.Equal(t, "b", state.ActiveClipID)
	assert.Equal(t, 1, obs.warm)
	assert.Equal(t, 1, obs.cold, "only the first clip was cold loaded")
	assert.False(t, secondary.Paused(), "preloaded port became the primary and plays")
	assert.True(t, primary.Paused())
	assert.Zero(t, countLoads(primary, clips[1].SourceURL))

	_, muted := secondary.Volume()
	assert.False(t, muted)
}

func TestEndStopsAndResets(t *testing.T) {
	clips := twoClips()
	s, _, _, _ := newTestScheduler(clips, 0)

	s.Play()
	for i := 0; i < 100 && s.Playing(); i++ {
		s.Tick(0.5)
	}
	state := s.State()
	assert.False(t, state.Playing)
	assert.Equal(t, 0.0, state.CurrentTime)
	assert.Equal(t, "a", state.ActiveClipID)
}

func TestColdLoadWhenNotPreloaded(t *testing.T) {
	clips := twoClips()
	s, primary, secondary, obs := newTestScheduler(clips, 0)

	s.Seek(7)
	assert.Equal(t, "b", s.State().ActiveClipID)
	assert.Equal(t, []string{clips[1].SourceURL}, primary.Loads)
	assert.Empty(t, secondary.Loads)
	assert.Equal(t, 1, obs.cold)
	assert.InDelta(t, 2.0, primary.CurrentPosition(), 1e-9)
}

func TestTrimBoundPausesPrimary(t *testing.T) {
	clips := []models.Clip{
		{ID: "a", SourceURL: "https://media.example.com/a.mp4", SourceDuration: 8, TrimEnd: 2, Audio: models.DefaultAudioInfo()},
	}
	s, primary, _, _ := newTestScheduler(clips, 0)

	s.Play()
	s.Tick(0.5)
	require.False(t, primary.Paused())

	// media clock runs ahead of the virtual playhead
	primary.Seek(5.95)
	s.Tick(0.1)
	assert.True(t, primary.Paused())
	assert.True(t, s.Playing(), "virtual playhead keeps advancing")
	assert.InDelta(t, 0.6, s.State().CurrentTime, 1e-9)
}

func TestPausedDriftSync(t *testing.T) {
	clips := twoClips()
	s, primary, _, _ := newTestScheduler(clips, 0)

	s.Seek(2)
	seeks := len(primary.Seeks)

	primary.Seek(2.05)
	s.Tick(0)
	assert.Len(t, primary.Seeks, seeks+1, "small drift is tolerated")

	primary.Seek(2.5)
	s.Tick(0)
	require.Len(t, primary.Seeks, seeks+3)
	assert.InDelta(t, 2.0, primary.Seeks[len(primary.Seeks)-1], 1e-9)
}

func TestDegradedClipDoesNotHalt(t *testing.T) {
	clips := twoClips()
	s, primary, secondary, obs := newTestScheduler(clips, 0)
	primary.Fail(clips[1].SourceURL)
	secondary.Fail(clips[1].SourceURL)

	s.Play()
	for s.State().CurrentTime < 6 && s.Playing() {
		s.Tick(0.5)
	}
	assert.True(t, s.Playing())
	assert.Equal(t, "b", s.State().ActiveClipID)
	assert.Equal(t, []string{"b"}, s.Degraded())
	assert.Equal(t, []string{"b"}, obs.degraded)
}

func TestVolumeAndMute(t *testing.T) {
	clips := twoClips()
	clips[0].Audio.Volume = 0.4
	s, primary, _, _ := newTestScheduler(clips, 0)

	s.SetVolume(0.5)
	s.Tick(0)
	v, muted := primary.Volume()
	assert.InDelta(t, 0.2, v, 1e-9)
	assert.False(t, muted)

	s.SetMuted(true)
	s.Tick(0)
	_, muted = primary.Volume()
	assert.True(t, muted)

	s.SetMuted(false)
	clips[0].Audio.HasAudio = false
	s.Tick(0)
	_, muted = primary.Volume()
	assert.True(t, muted, "detached audio silences the clip")

	s.SetVolume(3)
	gain, _ := s.Volume()
	assert.Equal(t, 1.0, gain)
}

func TestSeekAndToggle(t *testing.T) {
	clips := twoClips()
	s, _, _, _ := newTestScheduler(clips, 0)

	s.Seek(100)
	assert.Equal(t, 10.0, s.State().CurrentTime)
	assert.Equal(t, "b", s.State().ActiveClipID)

	s.Toggle()
	assert.True(t, s.Playing())
	assert.Equal(t, 0.0, s.State().CurrentTime, "play at the end restarts")

	s.Toggle()
	assert.False(t, s.Playing())

	s.Seek(-3)
	assert.Equal(t, 0.0, s.State().CurrentTime)

	s.Seek(4)
	s.Reset()
	assert.Equal(t, 0.0, s.State().CurrentTime)
	assert.False(t, s.Playing())
}

func TestEmptyTimeline(t *testing.T) {
	s, primary, _, _ := newTestScheduler(nil, 0)
	s.Play()
	assert.False(t, s.Playing())
	s.Tick(1)
	assert.Equal(t, models.PlaybackState{}, s.State())
	assert.Empty(t, primary.Loads)
}

func TestLoop(t *testing.T) {
	var frames int32
	l := NewLoop(200, func(delta float64) bool {
		assert.Greater(t, delta, 0.0)
		return atomic.AddInt32(&frames, 1) < 3
	})

	require.True(t, l.Start(context.Background()))
	assert.False(t, l.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&frames))
	assert.False(t, l.Running())

	t.Run("StopCancels", func(t *testing.T) {
		l := NewLoop(100, func(float64) bool { return true })
		require.True(t, l.Start(context.Background()))
		l.Stop()
		l.Wait()
		assert.False(t, l.Running())
	})
}
