// Package intake validates client intents before they reach the simulation
// loop.
package intake

import (
	"math"
	"time"

	"sulphate/internal/entity"
	"sulphate/internal/net/proto"
	"sulphate/internal/sim"
)

// MaxSpeed caps the velocity a client may request.
const MaxSpeed = 1e4

type Enqueuer interface {
	Enqueue(cmd sim.Command) (bool, string)
}

type CommandContext struct {
	Engine Enqueuer
	Now    func() time.Time
}

// StageClientCommand converts msg into a command for actor and enqueues it.
// Non-finite coordinates and excessive speeds are rejected here so the
// solver never sees them.
func StageClientCommand(ctx CommandContext, actor entity.UID, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, sim.CommandRejectInvalid
	}

	switch command.Type {
	case sim.CommandMove:
		if command.Move == nil || !finite(command.Move.VX, command.Move.VY) {
			return zero, false, sim.CommandRejectInvalid
		}
		if math.Hypot(command.Move.VX, command.Move.VY) > MaxSpeed {
			return zero, false, sim.CommandRejectInvalid
		}
	case sim.CommandTeleport:
		if command.Teleport == nil || !finite(command.Teleport.X, command.Teleport.Y) {
			return zero, false, sim.CommandRejectInvalid
		}
	case sim.CommandLeave:
	default:
		return zero, false, sim.CommandRejectInvalid
	}

	command.Actor = actor
	command.ActorID = actor.String()
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
