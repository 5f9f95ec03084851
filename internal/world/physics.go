package world

import (
	"sulphate/internal/entity"
	"sulphate/internal/space"
	"sulphate/internal/units"
	"sulphate/logging/simulation"
)

// deadline aggregates the earliest march time over a pass.
type deadline struct {
	set bool
	at  units.Time
}

func (d *deadline) offer(t units.Time) {
	if !d.set || t < d.at {
		d.set = true
		d.at = t
	}
}

func (d deadline) state() space.PhysicsState {
	if !d.set {
		return space.NoMarchState()
	}
	return space.MarchAt(d.at)
}

// UpdatePhysics reconciles the collision index with a change of uid's image
// from before to after. Contact notifications it causes are delivered after
// every index and table mutation has been made.
func (w *World) UpdatePhysics(uid entity.UID, before, after *space.Image) {
	var notes notifications
	w.updatePhysics(uid, before, after, &notes)
	w.deliver(notes)
}

func (w *World) updatePhysics(uid entity.UID, before, after *space.Image, notes *notifications) {
	current, tracked := w.index.Get(uid)

	if after == nil {
		if tracked {
			w.disappear(uid, before, notes)
		}
		return
	}

	if tracked && current.Matches(*after) {
		return
	}

	now := w.Now()
	if tracked && current.Radius == after.Radius() && current.Body.Position(now) == after.Body.Position(now) {
		w.bounce(uid, current, after.Body)
		return
	}

	last := before
	if last == nil && tracked {
		last = w.Image(uid)
	}
	w.relocate(uid, *after, last, notes)
}

// bounce records a pure velocity change. Contacts are left alone until the
// re-check one bounce window later.
func (w *World) bounce(uid entity.UID, current *space.CollisionEntry, body space.Body) {
	now := w.Now()
	current.Body = body
	current.Speed = units.Magnitude(body.Velocity())
	current.State = space.BounceAt(now)
	w.time.EnqueueRelative(MarchEvent{UID: uid, Mark: now, Bounce: true}, w.tuning.BounceWindow)
}

// disappear drops uid from the index and breaks all of its contacts. Each
// partner learns the last image it was touching.
func (w *World) disappear(uid entity.UID, last *space.Image, notes *notifications) {
	for _, other := range w.contacts.With(uid) {
		w.contacts.Remove(uid, other)
		w.contactEnded(uid, other, "disappeared")
		if last != nil {
			notes.add(noteDisappear, other, uid, *last)
		}
	}
	w.index.Remove(uid)
}

// relocate re-appends uid, evaluates it against every other entry and
// schedules whatever follows. Relocated entries take responsibility for all
// of their pairs.
func (w *World) relocate(uid entity.UID, image space.Image, last *space.Image, notes *notifications) {
	now := w.Now()
	w.index.Remove(uid)
	entry := space.NewCollisionEntry(image)
	n := w.index.Append(uid, entry)

	var next deadline
	for _, other := range w.index.Before(n) {
		result := space.Evaluate(entry, other.Entry, now, w.tuning)
		inContact := w.contacts.Has(uid, other.UID)

		switch result.Outcome {
		case space.StableContact:
			if !inContact {
				w.contacts.Add(uid, other.UID)
				w.contactBegan(uid, other.UID, 0)
				w.noteCollision(notes, uid, image, other.UID)
			}
		case space.StableMiss, space.Missing:
			if inContact {
				w.breakContact(notes, uid, last, other.UID)
			}
		case space.Marching:
			if inContact {
				w.breakContact(notes, uid, last, other.UID)
			}
			next.offer(result.Time)
		case space.Colliding:
			if result.Entry <= now {
				if inContact {
					w.scheduleRelease(uid, entry, other, result.Exit)
				} else {
					w.scheduleCollide(uid, entry, other, result)
				}
				continue
			}
			if inContact {
				w.breakContact(notes, uid, last, other.UID)
			}
			w.scheduleCollide(uid, entry, other, result)
		}
	}

	w.commitState(n, uid, next)
}

// march is the broad-phase pass for an entry whose march deadline arrived.
// Only entries before it in priority order are its responsibility.
func (w *World) march(uid entity.UID) {
	n, ok := w.index.Find(uid)
	if !ok {
		return
	}
	now := w.Now()
	entry := w.index.At(n).Entry

	var next deadline
	for _, other := range w.index.Before(n) {
		if w.contacts.Has(uid, other.UID) {
			continue
		}
		result := space.Evaluate(entry, other.Entry, now, w.tuning)
		switch result.Outcome {
		case space.Marching:
			next.offer(result.Time)
		case space.Colliding:
			w.scheduleCollide(uid, entry, other, result)
		}
	}

	w.commitState(n, uid, next)
}

// recheckBounce re-derives every pair of an entry one bounce window after
// its velocity changed. Contacts that no longer hold end with a genuine
// release, never a disappearance, and the pair is then planned like any
// other.
func (w *World) recheckBounce(uid entity.UID, notes *notifications) {
	n, ok := w.index.MoveToBack(uid)
	if !ok {
		return
	}
	now := w.Now()
	entry := w.index.At(n).Entry
	image := w.Image(uid)

	var next deadline
	for _, other := range w.index.Before(n) {
		result := space.Evaluate(entry, other.Entry, now, w.tuning)

		if w.contacts.Has(uid, other.UID) {
			if result.TouchingAt(now) {
				if result.Outcome == space.Colliding {
					w.scheduleRelease(uid, entry, other, result.Exit)
				}
				continue
			}
			// Released now, but the pair may still be heading for a new
			// contact.
			w.scheduleRelease(uid, entry, other, now)
		}

		switch result.Outcome {
		case space.StableContact:
			w.contacts.Add(uid, other.UID)
			w.contactBegan(uid, other.UID, 0)
			if image != nil {
				w.noteCollision(notes, uid, *image, other.UID)
			}
		case space.Colliding:
			w.scheduleCollide(uid, entry, other, result)
		case space.Marching:
			next.offer(result.Time)
		}
	}

	w.commitState(n, uid, next)
}

func (w *World) commitState(n int, uid entity.UID, next deadline) {
	w.index.At(n).Entry.State = next.state()
	if next.set {
		w.time.EnqueueAbsolute(MarchEvent{UID: uid, Mark: next.at}, next.at)
	}
}

func (w *World) scheduleCollide(uid entity.UID, entry space.CollisionEntry, other space.Indexed, result space.MarchResult) {
	w.time.EnqueueAbsolute(CollideEvent{
		First:     snapshotOf(uid, entry),
		Second:    snapshotOf(other.UID, other.Entry),
		ReleaseAt: result.Exit,
	}, result.Entry)
}

func (w *World) scheduleRelease(uid entity.UID, entry space.CollisionEntry, other space.Indexed, at units.Time) {
	w.time.EnqueueAbsolute(ReleaseEvent{
		First:  snapshotOf(uid, entry),
		Second: snapshotOf(other.UID, other.Entry),
	}, at)
}

// noteCollision queues Collide for both sides of a freshly added pair.
func (w *World) noteCollision(notes *notifications, uid entity.UID, image space.Image, other entity.UID) {
	notes.add(noteCollide, other, uid, image)
	if partner := w.Image(other); partner != nil {
		notes.add(noteCollide, uid, other, *partner)
	}
}

// breakContact ends a contact through the disappearance path: both sides
// receive Disappear with the other's image.
func (w *World) breakContact(notes *notifications, uid entity.UID, last *space.Image, other entity.UID) {
	w.contacts.Remove(uid, other)
	w.contactEnded(uid, other, "relocated")
	if last != nil {
		notes.add(noteDisappear, other, uid, *last)
	}
	if partner := w.Image(other); partner != nil {
		notes.add(noteDisappear, uid, other, *partner)
	}
}

func (w *World) contactBegan(a, b entity.UID, releaseAt units.Time) {
	w.metrics.Add(metricContactsBegan, 1)
	simulation.ContactBegan(w.ctx(), w.publisher, float64(w.Now()), ref(a), ref(b), simulation.ContactPayload{ReleaseAt: float64(releaseAt)})
}

func (w *World) contactEnded(a, b entity.UID, reason string) {
	w.metrics.Add(metricContactsEnded, 1)
	payload := simulation.ContactPayload{Reason: reason}
	if reason == "released" {
		simulation.ContactReleased(w.ctx(), w.publisher, float64(w.Now()), ref(a), ref(b), payload)
		return
	}
	simulation.ContactDisappeared(w.ctx(), w.publisher, float64(w.Now()), ref(a), ref(b), payload)
}
