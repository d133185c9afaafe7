// Package clock abstracts wall and monotonic time so the matching engine's
// timestamp tie-breaking is deterministic under test.
package clock

import "time"

// Clock supplies monotonic nanoseconds for order/trade timestamping and
// wall-clock seconds for depth snapshots.
type Clock interface {
	// MonotonicNow returns a monotonic (non-decreasing) nanosecond counter
	// used to order orders and stamp trades; two readings may be equal.
	MonotonicNow() int64
	// WallNow returns the current Unix time in seconds, for depth snapshots.
	WallNow() int64
}

// RealClock is backed by time.Now(); its monotonic reading is derived from
// time.Now()'s monotonic component via time.Since against a fixed epoch.
type RealClock struct {
	epoch time.Time
}

// NewRealClock returns a RealClock anchored to the moment of construction.
func NewRealClock() *RealClock {
	return &RealClock{epoch: time.Now()}
}

func (c *RealClock) MonotonicNow() int64 {
	return int64(time.Since(c.epoch))
}

func (c *RealClock) WallNow() int64 {
	return time.Now().Unix()
}
