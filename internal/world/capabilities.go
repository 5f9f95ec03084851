package world

import (
	"sulphate/internal/entity"
	"sulphate/internal/space"
)

// Display is implemented by every kind that can be seen. A nil Shape means
// the entity currently has no image and is not tracked for collisions.
type Display interface {
	Shape() space.Shape
}

// Eyes is implemented by kinds that observe the world. Update is called once
// per logical change of subject; before or after is nil when the subject
// appears or disappears.
type Eyes interface {
	Update(e *Entry, subject entity.UID, before, after *space.Image)
}

// Collider is implemented by kinds that want contact notifications. e is a
// scope on the receiving entity; other identifies the partner and image is
// what the receiver was touching.
type Collider interface {
	Collide(e *Entry, other entity.UID, image space.Image)
	Release(e *Entry, other entity.UID, image space.Image)
	Disappear(e *Entry, other entity.UID, image space.Image)
}
