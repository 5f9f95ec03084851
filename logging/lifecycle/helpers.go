package lifecycle

import (
	"context"

	"sulphate/logging"
)

const (
	// EventPlayerJoined is emitted when a player body is created in the world.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a player is removed from the world.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
)

// PlayerJoinedPayload captures spawn metadata for a new player.
type PlayerJoinedPayload struct {
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
	Radius float64 `json:"radius"`
}

// PlayerLeftPayload captures the reason a player left.
type PlayerLeftPayload struct {
	Reason string `json:"reason"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, simTime float64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerJoined,
		SimTime:  simTime,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// PlayerLeft publishes a player removal event.
func PlayerLeft(ctx context.Context, pub logging.Publisher, simTime float64, actor logging.EntityRef, payload PlayerLeftPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerLeft,
		SimTime:  simTime,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}
