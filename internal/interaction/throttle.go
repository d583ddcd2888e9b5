package interaction

import (
	"golang.org/x/time/rate"
)

// DefaultFrameRate is the display refresh gestures are throttled to
const DefaultFrameRate = 60

// Throttle bounds how often pointer updates are resolved
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows one flush per frame at fps
func NewThrottle(fps int) *Throttle {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(fps), 1)}
}

// Allow reports whether a flush may happen now. A nil throttle always allows.
func (t *Throttle) Allow() bool {
	if t == nil {
		return true
	}
	return t.limiter.Allow()
}
