package space

import "sulphate/internal/units"

// Shape is the kind-specific displayable part of an image. Implementations
// must be comparable values; images compare shapes with ==.
type Shape interface {
	Radius() units.Distance
}

// Image is what the outside world can observe about an entity: its shape
// and its body. The zero of "no image" is a nil *Image.
type Image struct {
	Shape Shape
	Body  Body
}

// Radius returns the collision radius of the image's shape.
func (i Image) Radius() units.Distance {
	if i.Shape == nil {
		return 0
	}
	return i.Shape.Radius()
}

// Equal reports whether two images are indistinguishable to an observer.
func (i Image) Equal(other Image) bool {
	return i.Shape == other.Shape && i.Body.Equal(other.Body)
}

// SameImage compares two optional images; two absent images are equal.
func SameImage(a, b *Image) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
