package world

import (
	"sulphate/internal/entity"
	"sulphate/internal/space"
	"sulphate/internal/units"
	"sulphate/logging/lifecycle"
)

// SpawnPlayer adds a player resting at position. The player first receives
// a Created update, then a vision update for everything already visible,
// then sees itself appear.
func (w *World) SpawnPlayer(name string, position units.Position) (entity.UID, *Player) {
	player := newPlayer(name, units.Distance(w.config.PlayerRadius), w.config.UpdateBuffer)
	uid := w.matter.Add(entity.KindPlayer, player)
	now := w.Now()
	player.offer(w, uid, Update{Kind: UpdateCreated, At: now, Self: uid})
	for _, other := range w.index.UIDs() {
		if image := w.Image(other); image != nil {
			player.offer(w, uid, Update{Kind: UpdateVision, At: now, Self: uid, Subject: other, Image: image})
		}
	}

	e := w.Entry(uid)
	e.SetBody(space.NewBody(position, units.Velocity{}, now))
	e.Close()

	lifecycle.PlayerJoined(w.ctx(), w.publisher, float64(now), ref(uid), lifecycle.PlayerJoinedPayload{
		SpawnX: position.X,
		SpawnY: position.Y,
		Radius: w.config.PlayerRadius,
	})
	return uid, player
}

// SpawnRock adds a rock moving with velocity from position.
func (w *World) SpawnRock(position units.Position, velocity units.Velocity, radius units.Distance) entity.UID {
	uid := w.matter.Add(entity.KindRock, &Rock{shape: RockShape{Size: radius}})
	e := w.Entry(uid)
	defer e.Close()
	e.SetBody(space.NewBody(position, velocity, w.Now()))
	return uid
}

// Remove despawns uid. Contact partners receive Disappear and observers see
// the image vanish. It reports whether uid existed.
func (w *World) Remove(uid entity.UID, reason string) bool {
	e := w.Entry(uid)
	value, ok := e.Despawn()
	e.Close()
	if !ok {
		return false
	}
	retire(uid, value)
	if uid.Kind == entity.KindPlayer {
		lifecycle.PlayerLeft(w.ctx(), w.publisher, float64(w.Now()), ref(uid), lifecycle.PlayerLeftPayload{Reason: reason})
	}
	return true
}

// Move changes uid's velocity without moving it.
func (w *World) Move(uid entity.UID, velocity units.Velocity) bool {
	e := w.Entry(uid)
	defer e.Close()
	body := e.Body()
	if body == nil {
		return false
	}
	body.Bounce(velocity, e.Now())
	return true
}

// Teleport places uid at position, keeping its velocity.
func (w *World) Teleport(uid entity.UID, position units.Position) bool {
	if !w.matter.Contains(uid) {
		return false
	}
	e := w.Entry(uid)
	defer e.Close()
	var velocity units.Velocity
	if body := e.Body(); body != nil {
		velocity = body.Velocity()
	}
	e.SetBody(space.NewBody(position, velocity, e.Now()))
	return true
}

// Steer sends uid towards target, arriving after travel.
func (w *World) Steer(uid entity.UID, target units.Position, travel units.Duration) bool {
	e := w.Entry(uid)
	defer e.Close()
	body := e.Body()
	if body == nil {
		return false
	}
	now := e.Now()
	body.BounceTo(target, now, now.Add(travel))
	return true
}
