// Package units names the scalar and vector quantities used by the
// simulation so signatures read in terms of time, distance and velocity
// rather than bare floats.
package units

import (
	"math"

	"github.com/jakecoffman/cp"
)

// MomentRate is the number of moments per unit of simulation time. A moment
// is the smallest interval the engine distinguishes; anything that ought to
// be seen lasts at least one moment.
const MomentRate = 16

// Time is an absolute simulation timestamp.
type Time float64

// Duration is a span of simulation time.
type Duration float64

// Distance is a scalar length.
type Distance float64

// Speed is the magnitude of a velocity.
type Speed float64

// Vector is a two dimensional quantity. Positions, displacements and
// velocities share the representation.
type Vector = cp.Vector

// Position is an absolute location.
type Position = Vector

// Displacement is the difference between two positions.
type Displacement = Vector

// Velocity is displacement per unit time.
type Velocity = Vector

// Add offsets t by d.
func (t Time) Add(d Duration) Time {
	return t + Time(d)
}

// Sub returns the duration from u to t.
func (t Time) Sub(u Time) Duration {
	return Duration(t - u)
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool {
	return t < u
}

// Later returns the later of two times.
func Later(a, b Time) Time {
	if a < b {
		return b
	}
	return a
}

// Moments converts a count of moments into a duration.
func Moments(n int) Duration {
	return Duration(n) / MomentRate
}

// Moment is the duration of a single moment.
func Moment() Duration {
	return Moments(1)
}

// Squared returns d².
func (d Distance) Squared() float64 {
	return float64(d) * float64(d)
}

// Over returns the time taken to cover d at speed s.
func (d Distance) Over(s Speed) Duration {
	return Duration(float64(d) / float64(s))
}

// Scale multiplies a velocity by a duration, producing a displacement.
func Scale(v Velocity, d Duration) Displacement {
	return v.Mult(float64(d))
}

// Magnitude returns the speed of a velocity.
func Magnitude(v Velocity) Speed {
	return Speed(math.Sqrt(v.Dot(v)))
}

// SquaredLength returns |v|².
func SquaredLength(v Vector) float64 {
	return v.Dot(v)
}
