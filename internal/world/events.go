package world

import (
	"sulphate/internal/entity"
	"sulphate/internal/sched"
	"sulphate/internal/space"
	"sulphate/internal/units"
	"sulphate/logging/simulation"
)

// snapshot is the state an event was planned against. It is used only to
// decide whether the event still applies.
type snapshot struct {
	UID    entity.UID
	Body   space.Body
	Radius units.Distance
}

func snapshotOf(uid entity.UID, entry space.CollisionEntry) snapshot {
	return snapshot{UID: uid, Body: entry.Body, Radius: entry.Radius}
}

// current reports whether s still describes the indexed entry. A body that
// bounced at exactly now still counts when it is in the same place.
func (w *World) current(s snapshot) bool {
	entry, ok := w.index.Get(s.UID)
	if !ok || entry.Radius != s.Radius {
		return false
	}
	if entry.Body.Equal(s.Body) {
		return true
	}
	now := w.Now()
	return entry.State.Names(space.Bounce, now) && entry.Body.Position(now) == s.Body.Position(now)
}

// MarchEvent re-runs the broad phase for one entry. It applies only while
// the entry's state still names Mark, as March or as Bounce for a bounce
// re-check.
type MarchEvent struct {
	UID    entity.UID
	Mark   units.Time
	Bounce bool
}

func (m MarchEvent) Invoke(_ *sched.Queue[*World], w *World) {
	entry, ok := w.index.Get(m.UID)
	if !ok {
		w.dropStale(m.UID, "march", "untracked")
		return
	}
	if m.Bounce {
		if !entry.State.Names(space.Bounce, m.Mark) {
			w.dropStale(m.UID, "bounce", "superseded")
			return
		}
		var notes notifications
		w.recheckBounce(m.UID, &notes)
		w.deliver(notes)
		return
	}
	if !entry.State.Names(space.March, m.Mark) {
		w.dropStale(m.UID, "march", "superseded")
		return
	}
	w.march(m.UID)
}

// CollideEvent starts a contact predicted by the narrow phase.
type CollideEvent struct {
	First     snapshot
	Second    snapshot
	ReleaseAt units.Time
}

func (c CollideEvent) Invoke(_ *sched.Queue[*World], w *World) {
	if !w.current(c.First) || !w.current(c.Second) {
		w.dropStale(c.First.UID, "collide", "moved")
		return
	}
	a, b := c.First.UID, c.Second.UID
	var notes notifications
	if w.contacts.Add(a, b) {
		w.contactBegan(a, b, c.ReleaseAt)
		if image := w.Image(a); image != nil {
			w.noteCollision(&notes, a, *image, b)
		}
	}
	w.time.EnqueueAbsolute(ReleaseEvent{First: c.First, Second: c.Second}, c.ReleaseAt)
	w.deliver(notes)
}

// ReleaseEvent ends a contact at the end of its predicted window.
type ReleaseEvent struct {
	First  snapshot
	Second snapshot
}

func (r ReleaseEvent) Invoke(_ *sched.Queue[*World], w *World) {
	if !w.current(r.First) || !w.current(r.Second) {
		w.dropStale(r.First.UID, "release", "moved")
		return
	}
	a, b := r.First.UID, r.Second.UID
	if !w.contacts.Remove(a, b) {
		return
	}
	w.contactEnded(a, b, "released")
	var notes notifications
	if image := w.Image(a); image != nil {
		notes.add(noteRelease, b, a, *image)
	}
	if image := w.Image(b); image != nil {
		notes.add(noteRelease, a, b, *image)
	}
	w.deliver(notes)
}

func (w *World) dropStale(uid entity.UID, event, reason string) {
	w.stale++
	w.metrics.Add(metricStaleEvents, 1)
	simulation.StaleEventDropped(w.ctx(), w.publisher, float64(w.Now()), ref(uid), simulation.StaleEventPayload{Event: event, Reason: reason})
}
