package playback

import (
	"errors"
	"math"
)

// ErrMediaUnavailable is reported by the simulated port for failing sources
var ErrMediaUnavailable = errors.New("media source unavailable")

// SimulatedPort is an in-process MediaPort with a fixed load latency. Its
// clock advances through Step, so sessions can be played server-side.
type SimulatedPort struct {
	latency float64
	failing map[string]bool

	src       string
	loading   bool
	remaining float64
	ready     bool
	failed    bool
	playing   bool
	position  float64
	volume    float64
	muted     bool

	readyFns []func()
	errorFns []func(error)

	// Loads records every source passed to Load
	Loads []string
	// Seeks records every Seek target
	Seeks []float64
}

// NewSimulatedPort creates a port whose loads become ready after latency seconds
func NewSimulatedPort(latency float64) *SimulatedPort {
	return &SimulatedPort{
		latency: math.Max(0, latency),
		failing: make(map[string]bool),
		volume:  1,
	}
}

// Fail makes every future load of url report ErrMediaUnavailable
func (p *SimulatedPort) Fail(url string) {
	p.failing[url] = true
}

func (p *SimulatedPort) Load(url string) {
	p.Loads = append(p.Loads, url)
	p.src = url
	p.ready = false
	p.failed = false
	p.playing = false
	p.position = 0
	p.readyFns = nil
	p.errorFns = nil
	p.loading = true
	p.remaining = p.latency
	if p.latency == 0 {
		p.complete()
	}
}

func (p *SimulatedPort) complete() {
	p.loading = false
	if p.failing[p.src] {
		p.failed = true
		fns := p.errorFns
		p.errorFns = nil
		p.readyFns = nil
		for _, fn := range fns {
			fn(ErrMediaUnavailable)
		}
		return
	}
	p.ready = true
	fns := p.readyFns
	p.readyFns = nil
	p.errorFns = nil
	for _, fn := range fns {
		fn()
	}
}

// Step advances loading and, while playing, the media position
func (p *SimulatedPort) Step(delta float64) {
	if p.loading {
		p.remaining -= delta
		if p.remaining <= 0 {
			p.complete()
		}
		return
	}
	if p.ready && p.playing {
		p.position += delta
	}
}

func (p *SimulatedPort) Source() string { return p.src }

func (p *SimulatedPort) Seek(t float64) {
	p.Seeks = append(p.Seeks, t)
	p.position = t
}

func (p *SimulatedPort) Play() {
	if p.ready {
		p.playing = true
	}
}

func (p *SimulatedPort) Pause() { p.playing = false }

func (p *SimulatedPort) Paused() bool { return !p.playing }

func (p *SimulatedPort) OnReady(fn func()) {
	if p.ready {
		fn()
		return
	}
	if p.failed || p.src == "" {
		return
	}
	p.readyFns = append(p.readyFns, fn)
}

func (p *SimulatedPort) OnError(fn func(error)) {
	if p.failed {
		fn(ErrMediaUnavailable)
		return
	}
	if p.ready || p.src == "" {
		return
	}
	p.errorFns = append(p.errorFns, fn)
}

func (p *SimulatedPort) Ready() bool { return p.ready }

func (p *SimulatedPort) CurrentPosition() float64 { return p.position }

func (p *SimulatedPort) SetVolume(v float64) { p.volume = v }

func (p *SimulatedPort) SetMuted(muted bool) { p.muted = muted }

// Volume returns the last volume and mute state set on the port
func (p *SimulatedPort) Volume() (float64, bool) { return p.volume, p.muted }
