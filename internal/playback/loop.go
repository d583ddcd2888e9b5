package playback

import (
	"context"
	"sync"
	"time"
)

// FrameFunc runs one frame with the elapsed seconds since the last one.
// Returning false stops the loop.
type FrameFunc func(delta float64) bool

// Loop calls a FrameFunc from a ticker at a fixed frame rate
type Loop struct {
	interval time.Duration
	frame    FrameFunc

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewLoop creates a loop at fps frames per second
func NewLoop(fps int, frame FrameFunc) *Loop {
	if fps <= 0 {
		fps = 60
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		frame:    frame,
	}
}

// Start launches the loop goroutine. It returns false if already running.
func (l *Loop) Start(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running = true
	go l.run(ctx, l.done)
	return true
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := now.Sub(last).Seconds()
			last = now
			if !l.frame(delta) {
				return
			}
		}
	}
}

// Stop asks the loop to exit without waiting for it. It may be called while
// holding a lock the frame function needs.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

// Wait blocks until the current run has exited
func (l *Loop) Wait() {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether the loop goroutine is active
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
