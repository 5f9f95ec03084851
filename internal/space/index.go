package space

import (
	"fmt"

	"sulphate/internal/entity"
	"sulphate/internal/units"
)

// Schedule is the physics scheduling mode of a collision entry.
type Schedule uint8

const (
	// NoMarch means no re-check is pending for the entry.
	NoMarch Schedule = iota
	// March means a broad-phase re-check is pending at the recorded time.
	March
	// Bounce means the velocity changed at the recorded time and a one
	// window re-check is pending.
	Bounce
)

func (s Schedule) String() string {
	switch s {
	case NoMarch:
		return "no_march"
	case March:
		return "march"
	case Bounce:
		return "bounce"
	default:
		return fmt.Sprintf("schedule(%d)", uint8(s))
	}
}

// PhysicsState records which scheduled re-check, if any, is authoritative
// for an entry. Events whose mark no longer matches are stale.
type PhysicsState struct {
	Mode Schedule
	Time units.Time
}

// NoMarchState is the idle state.
func NoMarchState() PhysicsState { return PhysicsState{Mode: NoMarch} }

// MarchAt schedules a broad-phase re-check at t.
func MarchAt(t units.Time) PhysicsState { return PhysicsState{Mode: March, Time: t} }

// BounceAt records a velocity change at t.
func BounceAt(t units.Time) PhysicsState { return PhysicsState{Mode: Bounce, Time: t} }

// Names reports whether the state is exactly mode at t.
func (s PhysicsState) Names(mode Schedule, t units.Time) bool {
	return s.Mode == mode && s.Time == t
}

// CollisionEntry caches what the solver needs about one tracked body.
type CollisionEntry struct {
	Body   Body
	Speed  units.Speed
	Radius units.Distance
	State  PhysicsState
}

// NewCollisionEntry derives an entry from an image.
func NewCollisionEntry(image Image) CollisionEntry {
	return CollisionEntry{
		Body:   image.Body,
		Speed:  units.Magnitude(image.Body.Velocity()),
		Radius: image.Radius(),
		State:  NoMarchState(),
	}
}

// Matches reports whether the cached body and radius equal the image's.
func (e CollisionEntry) Matches(image Image) bool {
	return e.Radius == image.Radius() && e.Body.Equal(image.Body)
}

// Indexed pairs an identity with its entry.
type Indexed struct {
	UID   entity.UID
	Entry CollisionEntry
}

// Index is the ordered collection of tracked bodies. Order encodes
// responsibility: an entry detects collisions against every entry before
// it, so new and relocated entries are always appended.
type Index struct {
	contents []Indexed
}

// NewIndex constructs an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Len reports the number of tracked bodies.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.contents)
}

// Find returns the position of uid in priority order.
func (x *Index) Find(uid entity.UID) (int, bool) {
	if x == nil {
		return 0, false
	}
	for n, item := range x.contents {
		if item.UID == uid {
			return n, true
		}
	}
	return 0, false
}

// Get returns a pointer to the live entry for uid. The pointer is valid
// until the next Append or Remove.
func (x *Index) Get(uid entity.UID) (*CollisionEntry, bool) {
	n, ok := x.Find(uid)
	if !ok {
		return nil, false
	}
	return &x.contents[n].Entry, true
}

// At returns the item at position n.
func (x *Index) At(n int) *Indexed {
	return &x.contents[n]
}

// Before returns the items that precede position n. The slice aliases the
// index and must not be retained across mutations.
func (x *Index) Before(n int) []Indexed {
	return x.contents[:n]
}

// Append adds uid at the end of the priority order.
func (x *Index) Append(uid entity.UID, entry CollisionEntry) int {
	if debugChecks {
		if _, exists := x.Find(uid); exists {
			panic(fmt.Sprintf("space: duplicate index entry for %v", uid))
		}
	}
	x.contents = append(x.contents, Indexed{UID: uid, Entry: entry})
	return len(x.contents) - 1
}

// Remove deletes uid, returning its last entry.
func (x *Index) Remove(uid entity.UID) (CollisionEntry, bool) {
	n, ok := x.Find(uid)
	if !ok {
		return CollisionEntry{}, false
	}
	entry := x.contents[n].Entry
	x.contents = append(x.contents[:n], x.contents[n+1:]...)
	return entry, true
}

// MoveToBack re-appends uid so it becomes responsible for every pair it is
// part of. It returns the new position.
func (x *Index) MoveToBack(uid entity.UID) (int, bool) {
	entry, ok := x.Remove(uid)
	if !ok {
		return 0, false
	}
	n := x.Append(uid, entry)
	if debugChecks {
		x.mustBeLast(uid)
	}
	return n, true
}

// UIDs lists the tracked identities in priority order.
func (x *Index) UIDs() []entity.UID {
	if x.Len() == 0 {
		return nil
	}
	out := make([]entity.UID, len(x.contents))
	for n, item := range x.contents {
		out[n] = item.UID
	}
	return out
}

func (x *Index) mustBeLast(uid entity.UID) {
	if len(x.contents) == 0 || x.contents[len(x.contents)-1].UID != uid {
		panic(fmt.Sprintf("space: %v not at the back after relocation", uid))
	}
}
