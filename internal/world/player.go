package world

import (
	"sulphate/internal/entity"
	"sulphate/internal/space"
	"sulphate/internal/units"
	"sulphate/logging/simulation"
)

// PlayerShape is what observers see of a player.
type PlayerShape struct {
	Size units.Distance
}

func (s PlayerShape) Radius() units.Distance { return s.Size }

// UpdateKind tags the updates delivered to a player's observer.
type UpdateKind string

const (
	UpdateCreated UpdateKind = "created"
	UpdateVision  UpdateKind = "vision"
	UpdateContact UpdateKind = "contact"
)

// ContactKind distinguishes the contact callbacks a player relays.
type ContactKind string

const (
	ContactCollide   ContactKind = "collide"
	ContactRelease   ContactKind = "release"
	ContactDisappear ContactKind = "disappear"
)

// Update is one message for the external observer behind a player.
type Update struct {
	Kind    UpdateKind
	At      units.Time
	Self    entity.UID
	// Subject is the entity seen for vision updates and the partner for
	// contact updates.
	Subject entity.UID
	// Image is the subject's new image for vision updates, nil when the
	// subject disappeared, and the partner's image for contact updates.
	Image   *space.Image
	Contact ContactKind
}

// Player is an entity controlled from outside the simulation. Everything it
// sees and touches is forwarded on its update channel.
type Player struct {
	Name    string
	shape   PlayerShape
	updates chan Update
	dropped uint64
	closed  bool
}

func newPlayer(name string, radius units.Distance, buffer int) *Player {
	if buffer < 1 {
		buffer = 1
	}
	return &Player{
		Name:    name,
		shape:   PlayerShape{Size: radius},
		updates: make(chan Update, buffer),
	}
}

// Updates is the outbound channel. It is closed when the player leaves.
func (p *Player) Updates() <-chan Update {
	return p.updates
}

// Dropped reports how many updates were lost to a full channel.
func (p *Player) Dropped() uint64 {
	return p.dropped
}

func (p *Player) Shape() space.Shape {
	return p.shape
}

// Resize changes the player's shape. It takes effect when the scope it was
// called in closes.
func (p *Player) Resize(radius units.Distance) {
	p.shape = PlayerShape{Size: radius}
}

func (p *Player) Update(e *Entry, subject entity.UID, _ *space.Image, after *space.Image) {
	p.offer(e.World(), e.UID(), Update{Kind: UpdateVision, At: e.Now(), Self: e.UID(), Subject: subject, Image: copyImage(after)})
}

func (p *Player) Collide(e *Entry, other entity.UID, image space.Image) {
	p.contact(e, ContactCollide, other, image)
}

func (p *Player) Release(e *Entry, other entity.UID, image space.Image) {
	p.contact(e, ContactRelease, other, image)
}

func (p *Player) Disappear(e *Entry, other entity.UID, image space.Image) {
	p.contact(e, ContactDisappear, other, image)
}

func (p *Player) contact(e *Entry, kind ContactKind, other entity.UID, image space.Image) {
	p.offer(e.World(), e.UID(), Update{Kind: UpdateContact, At: e.Now(), Self: e.UID(), Subject: other, Image: &image, Contact: kind})
}

// offer never blocks the simulation; a full channel loses the update.
func (p *Player) offer(w *World, self entity.UID, update Update) {
	if p.closed {
		return
	}
	select {
	case p.updates <- update:
	default:
		p.dropped++
		w.updateDropped(self, update.Kind, p.dropped)
	}
}

func (p *Player) close() {
	if p.closed {
		return
	}
	p.closed = true
	close(p.updates)
}

func copyImage(image *space.Image) *space.Image {
	if image == nil {
		return nil
	}
	copied := *image
	return &copied
}

func (w *World) updateDropped(uid entity.UID, kind UpdateKind, total uint64) {
	w.dropped++
	w.metrics.Add(metricUpdatesDropped, 1)
	// Log on powers of two so a stalled observer does not flood the sinks.
	if total&(total-1) == 0 {
		w.logger.Printf("[world] observer %s lagging, dropped %d updates", uid, total)
	}
	simulation.UpdateDropped(w.ctx(), w.publisher, float64(w.Now()), ref(uid), simulation.UpdateDroppedPayload{Update: string(kind), Total: total})
}
