package space

import "sulphate/internal/units"

// Body is a kinematic snapshot: where something was, how fast it was going,
// and when. Positions at other times are extrapolated linearly. Body is a
// value; changing velocity always goes through Split so the position stays
// continuous.
type Body struct {
	lastPosition units.Position
	velocity     units.Velocity
	lastTime     units.Time
}

// NewBody anchors a body at position and time with the given velocity.
func NewBody(position units.Position, velocity units.Velocity, time units.Time) Body {
	return Body{lastPosition: position, velocity: velocity, lastTime: time}
}

// Frozen returns a stationary body at position.
func Frozen(position units.Position) Body {
	return Body{lastPosition: position}
}

// WithEndPoint returns a body travelling from start to end over travel.
// A zero travel time freezes the body at end.
func WithEndPoint(start, end units.Position, startTime units.Time, travel units.Duration) Body {
	if travel == 0 {
		return Frozen(end)
	}
	velocity := end.Sub(start).Mult(1 / float64(travel))
	return NewBody(start, velocity, startTime)
}

// Position extrapolates the body to now.
func (b Body) Position(now units.Time) units.Position {
	return b.lastPosition.Add(units.Scale(b.velocity, now.Sub(b.lastTime)))
}

// Velocity returns the current velocity.
func (b Body) Velocity() units.Velocity {
	return b.velocity
}

// LastUpdate returns the time the body was anchored.
func (b Body) LastUpdate() units.Time {
	return b.lastTime
}

// Stationary reports whether the body has zero velocity.
func (b Body) Stationary() bool {
	return b.velocity == units.Velocity{}
}

// Split re-anchors the body at its position at now with a new velocity.
func (b Body) Split(velocity units.Velocity, now units.Time) Body {
	return Body{lastPosition: b.Position(now), velocity: velocity, lastTime: now}
}

// SplitTo re-anchors the body so that it reaches end at endTime.
func (b Body) SplitTo(end units.Position, now, endTime units.Time) Body {
	return WithEndPoint(b.Position(now), end, now, endTime.Sub(now))
}

// Bounce changes velocity in place.
func (b *Body) Bounce(velocity units.Velocity, now units.Time) {
	*b = b.Split(velocity, now)
}

// BounceTo redirects the body in place towards end, arriving at endTime.
func (b *Body) BounceTo(end units.Position, now, endTime units.Time) {
	*b = b.SplitTo(end, now, endTime)
}

// Freeze stops the body where it is at now.
func (b *Body) Freeze(now units.Time) {
	b.Bounce(units.Velocity{}, now)
}

// Equal compares anchors exactly, without extrapolating, so rounding is
// propagated consistently. Stationary bodies are equal regardless of when
// they came to rest.
func (b Body) Equal(other Body) bool {
	if b.lastPosition != other.lastPosition || b.velocity != other.velocity {
		return false
	}
	if b.Stationary() {
		return true
	}
	return b.lastTime == other.lastTime
}
