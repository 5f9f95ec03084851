package space

import (
	"fmt"
	"math"

	"sulphate/internal/units"
)

// DefaultMargin is the edge-to-edge distance at which marching and exact
// collision timing are considered equally preferable. Its best value varies
// between builds and workloads.
const DefaultMargin units.Distance = 5

// Tuning holds the solver's tunable constants.
type Tuning struct {
	// Margin is added to the radius sum before switching from marching to
	// the narrow phase. It must be positive: march steps are never shorter
	// than Margin over the closing speed.
	Margin units.Distance
	// Epsilon pads every exit time so contact windows are never empty.
	Epsilon units.Duration
	// BounceWindow delays the re-check that follows a pure velocity change.
	BounceWindow units.Duration
}

// DefaultTuning returns the stock tunables: a margin of 5 and one moment
// for both the exit padding and the bounce window.
func DefaultTuning() Tuning {
	return Tuning{
		Margin:       DefaultMargin,
		Epsilon:      units.Moment(),
		BounceWindow: units.Moment(),
	}
}

// Normalized replaces unusable values with defaults.
func (t Tuning) Normalized() Tuning {
	defaults := DefaultTuning()
	if !(t.Margin > 0) {
		t.Margin = defaults.Margin
	}
	if t.Epsilon <= 0 {
		t.Epsilon = defaults.Epsilon
	}
	if t.BounceWindow <= 0 {
		t.BounceWindow = defaults.BounceWindow
	}
	return t
}

// Outcome classifies a broad-phase result.
type Outcome uint8

const (
	// StableMiss means equal velocities and no overlap; nothing changes
	// until one of the pair relocates.
	StableMiss Outcome = iota
	// StableContact means equal velocities and overlapping circles.
	StableContact
	// Marching means the pair is far apart; re-check no earlier than Time.
	Marching
	// Colliding means the pair touches over [Entry, Exit).
	Colliding
	// Missing means the pair is close but will not touch.
	Missing
)

func (o Outcome) String() string {
	switch o {
	case StableMiss:
		return "stable_miss"
	case StableContact:
		return "stable_contact"
	case Marching:
		return "march"
	case Colliding:
		return "collide"
	case Missing:
		return "miss"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// MarchResult is the broad-phase verdict for a pair at some time.
type MarchResult struct {
	Outcome Outcome
	// Time is the march deadline when Outcome is Marching.
	Time units.Time
	// Entry and Exit bound the contact window when Outcome is Colliding.
	// Entry is never earlier than the evaluation time.
	Entry units.Time
	Exit  units.Time
}

// Stable reports whether the pair is in a permanent regime.
func (r MarchResult) Stable() bool {
	return r.Outcome == StableMiss || r.Outcome == StableContact
}

// TouchingAt reports whether the result says the pair touches at now.
func (r MarchResult) TouchingAt(now units.Time) bool {
	switch r.Outcome {
	case StableContact:
		return true
	case Colliding:
		return r.Entry <= now && now < r.Exit
	default:
		return false
	}
}

// Evaluate runs the broad phase for one and other at now.
func Evaluate(one, other CollisionEntry, now units.Time, tuning Tuning) MarchResult {
	if one.Body.Velocity() == other.Body.Velocity() {
		if CollisionStationary(one, other, now) {
			return MarchResult{Outcome: StableContact}
		}
		return MarchResult{Outcome: StableMiss}
	}

	centreDistSquared := units.SquaredLength(one.Body.Position(now).Sub(other.Body.Position(now)))
	proximity := one.Radius + other.Radius + tuning.Margin

	if centreDistSquared <= proximity.Squared() {
		window, ok := CollisionLinear(one, other, tuning.Epsilon)
		if !ok {
			return MarchResult{Outcome: Missing}
		}
		entry := window.Reference.Add(window.Entry)
		exit := window.Reference.Add(window.Exit)
		if exit <= now {
			return MarchResult{Outcome: Missing}
		}
		if entry < now {
			entry = now
		}
		return MarchResult{Outcome: Colliding, Entry: entry, Exit: exit}
	}

	// Stop short of the margin rather than subtracting it, so the next pass
	// lands inside it.
	edgeDist := units.Distance(math.Sqrt(centreDistSquared)) - one.Radius - other.Radius
	// Speeds are non-negative and the velocities differ, so the sum is
	// positive.
	closing := one.Speed + other.Speed
	return MarchResult{Outcome: Marching, Time: now.Add(edgeDist.Over(closing))}
}

// Window is a contact interval relative to Reference.
type Window struct {
	Reference units.Time
	Entry     units.Duration
	Exit      units.Duration
}

// CollisionLinear computes when two bodies with differing velocities are
// within touching distance. It works in a relative frame at the later of
// the two anchor times. ok is false when the bodies never get close enough.
// The result does not depend on argument order.
func CollisionLinear(one, other CollisionEntry, epsilon units.Duration) (Window, bool) {
	reference := units.Later(one.Body.LastUpdate(), other.Body.LastUpdate())
	relPos := one.Body.Position(reference).Sub(other.Body.Position(reference))
	relVel := one.Body.Velocity().Sub(other.Body.Velocity())

	relSpeedSquared := units.SquaredLength(relVel)
	if relSpeedSquared == 0 {
		return Window{}, false
	}

	// Closest approach: p + vt orthogonal to v.
	nearTime := -relPos.Dot(relVel) / relSpeedSquared
	near := relPos.Add(relVel.Mult(nearTime))

	collDist := one.Radius + other.Radius
	if collDist.Squared() < units.SquaredLength(near) {
		return Window{}, false
	}

	// Completing the square in (p + vt)² = d².
	diffSquared := (collDist.Squared()-units.SquaredLength(relPos))/relSpeedSquared + nearTime*nearTime
	if diffSquared < 0 {
		diffSquared = 0
	}
	diff := math.Sqrt(diffSquared)

	return Window{
		Reference: reference,
		Entry:     units.Duration(nearTime - diff),
		Exit:      units.Duration(nearTime+diff) + epsilon,
	}, true
}

// CollisionStationary reports whether two bodies overlap at now. It is the
// complete test for pairs sharing a velocity.
func CollisionStationary(one, other CollisionEntry, now units.Time) bool {
	separation := units.SquaredLength(one.Body.Position(now).Sub(other.Body.Position(now)))
	return separation <= (one.Radius + other.Radius).Squared()
}
