package pipeline

import (
	"time"
)

// ThrottleGate enforces a minimum wall-clock interval between admitted
// frames. Rejected ticks are simply dropped, never queued.
type ThrottleGate struct {
	interval     time.Duration
	lastAdmitted time.Time
}

// NewThrottleGate creates a throttle gate with the given minimum spacing
func NewThrottleGate(interval time.Duration) *ThrottleGate {
	return &ThrottleGate{interval: interval}
}

// TryAdmit reports whether enough time has passed since the last admitted
// frame, and on admission records now as the new reference point.
func (g *ThrottleGate) TryAdmit(now time.Time) bool {
	if !g.lastAdmitted.IsZero() && now.Sub(g.lastAdmitted) < g.interval {
		return false
	}
	g.lastAdmitted = now
	return true
}

// SetInterval updates the minimum spacing between admitted frames
func (g *ThrottleGate) SetInterval(interval time.Duration) {
	g.interval = interval
}

// Reset clears the gate so the next frame is admitted unconditionally
func (g *ThrottleGate) Reset() {
	g.lastAdmitted = time.Time{}
}
