package sim

import (
	"testing"
	"time"

	"sulphate/internal/entity"
	"sulphate/internal/units"
	"sulphate/internal/world"
	"sulphate/logging"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestLoop(t *testing.T, cfg LoopConfig, hooks LoopHooks) (*Loop, *world.World) {
	t.Helper()
	w, err := world.New(world.DefaultConfig(), world.Deps{})
	if err != nil {
		t.Fatalf("world.New returned error: %v", err)
	}
	clock := &fakeClock{now: time.Unix(0, 0)}
	loop := NewLoop(w, cfg, Deps{Clock: clock}, hooks)
	if loop == nil {
		t.Fatalf("NewLoop returned nil")
	}
	return loop, w
}

func join(t *testing.T, loop *Loop, name string, x float64, at units.Time) JoinResult {
	t.Helper()
	reply := make(chan JoinResult, 1)
	if ok, reason := loop.Enqueue(Command{ActorID: name, Type: CommandJoin, Join: &JoinCommand{Name: name, X: x, Reply: reply}}); !ok {
		t.Fatalf("join rejected: %s", reason)
	}
	loop.Advance(at)
	select {
	case result := <-reply:
		return result
	default:
		t.Fatalf("join for %s produced no reply", name)
	}
	return JoinResult{}
}

func TestLoopAppliesCommandsBetweenTicks(t *testing.T) {
	loop, w := newTestLoop(t, LoopConfig{CommandCapacity: 16}, LoopHooks{})
	a := join(t, loop, "a", 0, 0)
	b := join(t, loop, "b", 100, 0)
	if a.UID.Kind != entity.KindPlayer || a.UID == b.UID {
		t.Fatalf("unexpected identities %v %v", a.UID, b.UID)
	}
	if first := <-a.Updates; first.Kind != world.UpdateCreated {
		t.Fatalf("expected created update first, got %+v", first)
	}

	loop.Enqueue(Command{Actor: a.UID, Type: CommandMove, Move: &MoveCommand{VX: 50}})
	loop.Enqueue(Command{Actor: b.UID, Type: CommandMove, Move: &MoveCommand{VX: -50}})
	if loop.Pending() != 2 {
		t.Fatalf("commands should wait for the next tick, pending=%d", loop.Pending())
	}
	result := loop.Advance(0)
	if len(result.Commands) != 2 || loop.Pending() != 0 {
		t.Fatalf("expected both moves applied, got %d (pending %d)", len(result.Commands), loop.Pending())
	}

	loop.Advance(1)
	if !w.InContact(a.UID, b.UID) {
		t.Fatalf("expected players in contact at t=1")
	}
	stats := loop.Stats()
	if stats.Ticks != 4 || stats.Commands != 4 || stats.World.Contacts != 1 {
		t.Fatalf("unexpected loop stats %+v", stats)
	}

	loop.Enqueue(Command{Actor: b.UID, Type: CommandLeave, Leave: &LeaveCommand{Reason: "test"}})
	loop.Advance(1)
	if w.InContact(a.UID, b.UID) {
		t.Fatalf("leave should break the contact")
	}
}

func TestLoopPerActorLimit(t *testing.T) {
	var drops []string
	loop, _ := newTestLoop(t, LoopConfig{CommandCapacity: 8, PerActorLimit: 1}, LoopHooks{
		OnCommandDrop: func(reason string, cmd Command) { drops = append(drops, reason) },
	})

	if ok, _ := loop.Enqueue(Command{ActorID: "x", Type: CommandMove, Move: &MoveCommand{}}); !ok {
		t.Fatalf("first command should be accepted")
	}
	ok, reason := loop.Enqueue(Command{ActorID: "x", Type: CommandMove, Move: &MoveCommand{}})
	if ok || reason != CommandRejectQueueLimit {
		t.Fatalf("expected queue_limit rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, _ := loop.Enqueue(Command{ActorID: "y", Type: CommandMove, Move: &MoveCommand{}}); !ok {
		t.Fatalf("other actors are not throttled")
	}
	loop.Advance(0)
	if ok, _ := loop.Enqueue(Command{ActorID: "x", Type: CommandMove, Move: &MoveCommand{}}); !ok {
		t.Fatalf("limits reset after a tick")
	}
	if len(drops) != 1 || drops[0] != CommandRejectQueueLimit {
		t.Fatalf("unexpected drop hook calls %v", drops)
	}
	if loop.Stats().Dropped != 1 {
		t.Fatalf("expected one dropped command, got %d", loop.Stats().Dropped)
	}
}

func TestLoopCapacityAndWarnings(t *testing.T) {
	var warnings []int
	loop, _ := newTestLoop(t, LoopConfig{CommandCapacity: 2, WarningStep: 2}, LoopHooks{
		OnQueueWarning: func(length int) { warnings = append(warnings, length) },
	})
	loop.Enqueue(Command{ActorID: "a", Type: CommandRetune, Retune: &RetuneCommand{Config: world.Config{Margin: 9}}})
	loop.Enqueue(Command{ActorID: "b"})
	ok, reason := loop.Enqueue(Command{ActorID: "c"})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected queue_full, got ok=%v reason=%q", ok, reason)
	}
	if len(warnings) != 1 || warnings[0] != 2 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	loop.Advance(0)
	if got := loop.Stats().World.Margin; got != 9 {
		t.Fatalf("retune not applied, margin=%v", got)
	}
}

func TestClockMapsWallToSimTime(t *testing.T) {
	wall := &fakeClock{now: time.Unix(100, 0)}
	clock := NewClock(wall, 10, 2)
	wall.now = wall.now.Add(1500 * time.Millisecond)
	if got := clock.Now(); got != 13 {
		t.Fatalf("expected sim time 13, got %v", got)
	}
	if got := clock.WallAt(14); !got.Equal(time.Unix(102, 0)) {
		t.Fatalf("expected wall time 102s, got %v", got)
	}
	if until := clock.Until(12); until != 0 {
		t.Fatalf("past times are due immediately, got %v", until)
	}
	if until := clock.Until(14); until != 500*time.Millisecond {
		t.Fatalf("expected 500ms until t=14, got %v", until)
	}
}

func TestLoopRunStopsAndRejectsLateCommands(t *testing.T) {
	w, err := world.New(world.DefaultConfig(), world.Deps{})
	if err != nil {
		t.Fatalf("world.New returned error: %v", err)
	}
	loop := NewLoop(w, LoopConfig{SimRate: 1, CommandCapacity: 4, IdleTick: 10 * time.Millisecond}, Deps{Clock: logging.SystemClock{}}, LoopHooks{})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		loop.Run(stop)
		close(done)
	}()

	reply := make(chan JoinResult, 1)
	loop.Enqueue(Command{ActorID: "runner", Type: CommandJoin, Join: &JoinCommand{Name: "runner", Reply: reply}})
	select {
	case result := <-reply:
		if result.UID.Kind != entity.KindPlayer {
			t.Fatalf("unexpected join result %+v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not apply the join")
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not stop")
	}
	if ok, reason := loop.Enqueue(Command{ActorID: "late"}); ok || reason != CommandRejectStopped {
		t.Fatalf("expected stopped rejection, got ok=%v reason=%q", ok, reason)
	}
}
