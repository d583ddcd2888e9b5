package playback

// MediaPort is the host media primitive the scheduler drives. Ports are
// commanded only by the scheduler. Callbacks must be delivered on the
// goroutine that calls Scheduler.Tick.
type MediaPort interface {
	// Load replaces the current source. Readiness is reported through OnReady.
	Load(url string)
	// Source returns the URL of the last Load
	Source() string
	Seek(t float64)
	Play()
	Pause()
	Paused() bool
	// OnReady registers a one-shot callback for the current load. If the
	// port is already ready the callback runs immediately.
	OnReady(fn func())
	// OnError registers a one-shot callback for a failure of the current load
	OnError(fn func(error))
	Ready() bool
	CurrentPosition() float64
	SetVolume(v float64)
	SetMuted(muted bool)
}

// Stepper is implemented by ports whose media clock is advanced by the
// scheduler's frame rather than by the host
type Stepper interface {
	Step(delta float64)
}

// Observer is notified of scheduler events worth counting
type Observer interface {
	Preloaded(clipID string)
	Handoff(warm bool)
	Degraded(clipID string, err error)
}

type nopObserver struct{}

func (nopObserver) Preloaded(string)       {}
func (nopObserver) Handoff(bool)           {}
func (nopObserver) Degraded(string, error) {}
