package intake

import (
	"math"
	"testing"
	"time"

	"sulphate/internal/entity"
	"sulphate/internal/net/proto"
	"sulphate/internal/sim"
)

type fakeEngine struct {
	enqueueOK     bool
	enqueueReason string
	commands      []sim.Command
}

func (f *fakeEngine) Enqueue(cmd sim.Command) (bool, string) {
	f.commands = append(f.commands, cmd)
	if f.enqueueOK {
		return true, ""
	}
	if f.enqueueReason == "" {
		f.enqueueReason = sim.CommandRejectQueueLimit
	}
	return false, f.enqueueReason
}

var player = entity.UID{ID: 7, Kind: entity.KindPlayer}

func TestStageClientCommandAcceptsMove(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	issuedAt := time.Unix(100, 0)
	ctx := CommandContext{Engine: engine, Now: func() time.Time { return issuedAt }}

	cmd, ok, reason := StageClientCommand(ctx, player, proto.ClientMessage{Type: proto.TypeMove, VX: 1})
	if !ok {
		t.Fatalf("expected command to be accepted, got reason %q", reason)
	}
	if cmd.Actor != player || cmd.ActorID != player.String() {
		t.Fatalf("expected actor to be set, got %+v", cmd)
	}
	if !cmd.IssuedAt.Equal(issuedAt) {
		t.Fatalf("expected IssuedAt %v, got %v", issuedAt, cmd.IssuedAt)
	}
	if len(engine.commands) != 1 {
		t.Fatalf("expected engine to record command, got %d", len(engine.commands))
	}
}

func TestStageClientCommandRejectsInvalidInput(t *testing.T) {
	cases := map[string]proto.ClientMessage{
		"unknown type":    {Type: "dance"},
		"nan velocity":    {Type: proto.TypeMove, VX: math.NaN()},
		"excessive speed": {Type: proto.TypeMove, VX: MaxSpeed, VY: MaxSpeed},
		"infinite target": {Type: proto.TypeTeleport, X: math.Inf(1)},
	}
	for name, msg := range cases {
		msg := msg
		t.Run(name, func(t *testing.T) {
			engine := &fakeEngine{enqueueOK: true}
			_, ok, reason := StageClientCommand(CommandContext{Engine: engine}, player, msg)
			if ok || reason != sim.CommandRejectInvalid {
				t.Fatalf("expected invalid rejection, got ok=%v reason=%q", ok, reason)
			}
			if len(engine.commands) != 0 {
				t.Fatalf("invalid command must not reach the engine")
			}
		})
	}
}

func TestStageClientCommandPropagatesEngineRejection(t *testing.T) {
	engine := &fakeEngine{}
	_, ok, reason := StageClientCommand(CommandContext{Engine: engine}, player, proto.ClientMessage{Type: proto.TypeLeave})
	if ok || reason != sim.CommandRejectQueueLimit {
		t.Fatalf("expected queue limit rejection, got ok=%v reason=%q", ok, reason)
	}

	_, ok, reason = StageClientCommand(CommandContext{}, player, proto.ClientMessage{Type: proto.TypeLeave})
	if ok || reason != sim.CommandRejectQueueFull {
		t.Fatalf("expected missing engine to reject as queue full, got ok=%v reason=%q", ok, reason)
	}
}
