package world

import (
	"sulphate/internal/entity"
	"sulphate/internal/space"
	"sulphate/internal/units"
)

// Entry is a change-tracking scope on one entity. It captures the image the
// entity had when acquired and a working copy of its body; Close commits
// the changes to the physics engine and notifies observers once. Always
// pair World.Entry with a deferred Close.
type Entry struct {
	world  *World
	uid    entity.UID
	before *space.Image
	body   *space.Body
	closed bool
}

// Entry opens a scope on uid. The entity need not exist yet.
func (w *World) Entry(uid entity.UID) *Entry {
	e := &Entry{world: w, uid: uid, before: w.Image(uid)}
	if tracked, ok := w.index.Get(uid); ok {
		body := tracked.Body
		e.body = &body
	}
	return e
}

// UID identifies the entity the scope is on.
func (e *Entry) UID() entity.UID {
	return e.uid
}

// World returns the world the scope belongs to.
func (e *Entry) World() *World {
	return e.world
}

// Now reads the scheduler clock.
func (e *Entry) Now() units.Time {
	return e.world.Now()
}

// Get returns the entity value, if it still exists.
func (e *Entry) Get() (any, bool) {
	return e.world.matter.Get(e.uid)
}

// Before returns the image captured when the scope was opened.
func (e *Entry) Before() *space.Image {
	return e.before
}

// Body returns the working copy of the body, or nil if the entity has none.
// Changes take effect on Close.
func (e *Entry) Body() *space.Body {
	return e.body
}

// SetBody installs a body, giving the entity an image if it has a shape.
func (e *Entry) SetBody(body space.Body) {
	e.body = &body
}

// ClearBody removes the body so the entity stops being tracked.
func (e *Entry) ClearBody() {
	e.body = nil
}

// Despawn removes the entity from the store.
func (e *Entry) Despawn() (any, bool) {
	return e.world.matter.Remove(e.uid)
}

// Close commits the scope. It is safe to call more than once.
func (e *Entry) Close() {
	if e == nil || e.closed {
		return
	}
	e.closed = true
	w := e.world
	after := w.imageWith(e.uid, e.body)
	w.UpdatePhysics(e.uid, e.before, after)
	if !space.SameImage(e.before, after) {
		w.fanOut(e.uid, e.before, after)
	}
}
