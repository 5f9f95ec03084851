package world

import (
	"sulphate/internal/space"
	"sulphate/internal/units"
)

// RockShape is what observers see of a rock.
type RockShape struct {
	Size units.Distance
}

func (s RockShape) Radius() units.Distance { return s.Size }

// Rock is an inert body. It is seen and collided with but observes nothing.
type Rock struct {
	shape RockShape
}

func (r *Rock) Shape() space.Shape {
	return r.shape
}
