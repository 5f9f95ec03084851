package sim

import (
	"time"

	"sulphate/internal/units"
	"sulphate/logging"
)

// Clock maps wall time onto simulation time at a fixed rate, anchored at the
// moment the clock was created.
type Clock struct {
	wall   logging.Clock
	origin time.Time
	start  units.Time
	rate   float64
}

// NewClock starts a clock reading start now, advancing rate simulation units
// per wall second.
func NewClock(wall logging.Clock, start units.Time, rate float64) *Clock {
	if wall == nil {
		wall = logging.SystemClock{}
	}
	if rate <= 0 {
		rate = 1
	}
	return &Clock{wall: wall, origin: wall.Now(), start: start, rate: rate}
}

// Now returns the current simulation time.
func (c *Clock) Now() units.Time {
	return c.SimAt(c.wall.Now())
}

// SimAt converts a wall time.
func (c *Clock) SimAt(wall time.Time) units.Time {
	elapsed := wall.Sub(c.origin).Seconds()
	return c.start.Add(units.Duration(elapsed * c.rate))
}

// WallAt converts a simulation time.
func (c *Clock) WallAt(t units.Time) time.Time {
	seconds := float64(t.Sub(c.start)) / c.rate
	return c.origin.Add(time.Duration(seconds * float64(time.Second)))
}

// Until returns the wall duration until t, never negative.
func (c *Clock) Until(t units.Time) time.Duration {
	d := c.WallAt(t).Sub(c.wall.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Rate reports simulation units per wall second.
func (c *Clock) Rate() float64 {
	return c.rate
}
