package world

import (
	"fmt"

	"sulphate/internal/entity"
	"sulphate/internal/space"
)

type contactNote uint8

const (
	noteCollide contactNote = iota
	noteRelease
	noteDisappear
)

func (n contactNote) String() string {
	switch n {
	case noteCollide:
		return "collide"
	case noteRelease:
		return "release"
	case noteDisappear:
		return "disappear"
	default:
		return fmt.Sprintf("note(%d)", uint8(n))
	}
}

type notification struct {
	note    contactNote
	target  entity.UID
	partner entity.UID
	image   space.Image
}

// notifications buffers contact callbacks until the mutation that caused
// them is complete, so handlers may open scopes of their own.
type notifications []notification

func (n *notifications) add(note contactNote, target, partner entity.UID, image space.Image) {
	*n = append(*n, notification{note: note, target: target, partner: partner, image: image})
}

func (w *World) deliver(notes notifications) {
	for _, n := range notes {
		value, ok := w.matter.Get(n.target)
		if !ok {
			continue
		}
		collider := colliderOf(n.target, value)
		if collider == nil {
			continue
		}
		w.notifyOne(collider, n)
	}
}

func (w *World) notifyOne(collider Collider, n notification) {
	e := w.Entry(n.target)
	defer e.Close()
	switch n.note {
	case noteCollide:
		collider.Collide(e, n.partner, n.image)
	case noteRelease:
		collider.Release(e, n.partner, n.image)
	case noteDisappear:
		collider.Disappear(e, n.partner, n.image)
	default:
		panic(fmt.Sprintf("world: unknown contact note %v", n.note))
	}
}

// fanOut tells every live observer about one change of subject. Observers
// added or removed by handlers during the fan-out are not revisited.
func (w *World) fanOut(subject entity.UID, before, after *space.Image) {
	for _, uid := range w.matter.UIDs() {
		value, ok := w.matter.Get(uid)
		if !ok {
			continue
		}
		eyes := eyesOf(uid, value)
		if eyes == nil {
			continue
		}
		w.showOne(eyes, uid, subject, before, after)
	}
}

func (w *World) showOne(eyes Eyes, observer, subject entity.UID, before, after *space.Image) {
	e := w.Entry(observer)
	defer e.Close()
	eyes.Update(e, subject, before, after)
}
