package sim

import (
	"time"

	"sulphate/internal/entity"
	"sulphate/internal/world"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandJoin     CommandType = "Join"
	CommandLeave    CommandType = "Leave"
	CommandMove     CommandType = "Move"
	CommandTeleport CommandType = "Teleport"
	CommandRetune   CommandType = "Retune"
)

// JoinCommand asks for a new player. The result is sent on Reply, which
// should have room for one value.
type JoinCommand struct {
	Name  string           `json:"name"`
	X     float64          `json:"x"`
	Y     float64          `json:"y"`
	Reply chan<- JoinResult `json:"-"`
}

// JoinResult hands the new player's identity and update stream back to the
// requester.
type JoinResult struct {
	UID     entity.UID
	Updates <-chan world.Update
}

// LeaveCommand removes the actor.
type LeaveCommand struct {
	Reason string `json:"reason"`
}

// MoveCommand carries the desired velocity.
type MoveCommand struct {
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// TeleportCommand places the actor at a position.
type TeleportCommand struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RetuneCommand replaces the world configuration and its solver tunables.
type RetuneCommand struct {
	Config world.Config `json:"config"`
}

// Command represents an intent captured for processing between ticks.
type Command struct {
	ActorID  string           `json:"actorId"`
	Actor    entity.UID       `json:"-"`
	Type     CommandType      `json:"type"`
	IssuedAt time.Time        `json:"issuedAt"`
	Join     *JoinCommand     `json:"join,omitempty"`
	Leave    *LeaveCommand    `json:"leave,omitempty"`
	Move     *MoveCommand     `json:"move,omitempty"`
	Teleport *TeleportCommand `json:"teleport,omitempty"`
	Retune   *RetuneCommand   `json:"retune,omitempty"`
}

// actorKey identifies the producer for per-actor throttling.
func (c Command) actorKey() string {
	if c.ActorID != "" {
		return c.ActorID
	}
	if c.Actor != (entity.UID{}) {
		return c.Actor.String()
	}
	return ""
}
