package world

import (
	"sulphate/internal/entity"
	"sulphate/internal/space"
	"sulphate/internal/units"
)

// Bumper is a round obstacle that stops whatever runs into it. It observes
// nothing and ignores releases.
type Bumper struct {
	shape  RockShape
	halted uint64
}

func (b *Bumper) Shape() space.Shape {
	return b.shape
}

// Halted counts the partners this bumper has stopped.
func (b *Bumper) Halted() uint64 {
	return b.halted
}

func (b *Bumper) Collide(e *Entry, other entity.UID, _ space.Image) {
	if e.World().Move(other, units.Velocity{}) {
		b.halted++
	}
}

func (b *Bumper) Release(*Entry, entity.UID, space.Image) {}

func (b *Bumper) Disappear(*Entry, entity.UID, space.Image) {}

// SpawnBumper adds a bumper moving with velocity from position.
func (w *World) SpawnBumper(position units.Position, velocity units.Velocity, radius units.Distance) entity.UID {
	uid := w.matter.Add(entity.KindBumper, &Bumper{shape: RockShape{Size: radius}})
	e := w.Entry(uid)
	defer e.Close()
	e.SetBody(space.NewBody(position, velocity, w.Now()))
	return uid
}
