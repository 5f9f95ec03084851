package sim

import (
	"context"
	"sync"
	"time"

	"sulphate/internal/telemetry"
	"sulphate/internal/units"
	"sulphate/internal/world"
	"sulphate/logging"
	"sulphate/logging/simulation"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
	// CommandRejectStopped indicates the loop no longer accepts commands.
	CommandRejectStopped = "stopped"
	// CommandRejectInvalid indicates the command failed validation.
	CommandRejectInvalid = "invalid_command"

	loopTicksMetricKey    = "sim_loop_ticks_total"
	loopCommandsMetricKey = "sim_loop_commands_total"
	loopEventsMetricKey   = "sim_loop_events_total"
)

// LoopConfig tunes the command buffer and loop orchestration.
type LoopConfig struct {
	// SimRate is simulation time units per wall second.
	SimRate         float64
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
	// IdleTick bounds how long the loop sleeps with nothing scheduled.
	IdleTick time.Duration
}

// LoopTickContext describes one tick.
type LoopTickContext struct {
	Tick uint64
	Now  units.Time
	Wall time.Time
}

// LoopStepResult reports what a tick did.
type LoopStepResult struct {
	Tick     uint64
	Now      units.Time
	Fired    int
	Commands []Command
	Duration time.Duration
	World    world.Stats
}

// LoopHooks exposes optional callbacks around ticks and backpressure.
type LoopHooks struct {
	AfterStep      func(LoopStepResult)
	OnQueueWarning func(length int)
	OnCommandDrop  func(reason string, cmd Command)
}

// LoopStats is a copy of the loop's counters, safe to read from any
// goroutine.
type LoopStats struct {
	Ticks    uint64      `json:"ticks"`
	Commands uint64      `json:"commands"`
	Dropped  uint64      `json:"droppedCommands"`
	Pending  int         `json:"pendingCommands"`
	SimTime  float64     `json:"simTime"`
	World    world.Stats `json:"world"`
}

// Loop is the single simulation goroutine. Producers stage commands with
// Enqueue; Run fires due events and applies staged commands between ticks.
type Loop struct {
	world     *world.World
	buffer    *CommandBuffer
	clock     *Clock
	hooks     LoopHooks
	config    LoopConfig
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
	stopped       bool

	tick    uint64
	scratch []Command

	statsMu sync.Mutex
	stats   LoopStats
}

// NewLoop wraps the world with a ring-buffer queue and a clock that starts
// at the world's current time.
func NewLoop(w *world.World, cfg LoopConfig, deps Deps, hooks LoopHooks) *Loop {
	if w == nil {
		return nil
	}
	deps = deps.normalized()
	if cfg.IdleTick <= 0 {
		cfg.IdleTick = time.Second
	}
	loop := &Loop{
		world:         w,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		clock:         NewClock(deps.Clock, w.Now(), cfg.SimRate),
		hooks:         hooks,
		config:        cfg,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		publisher:     deps.Publisher,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
	loop.stats.World = w.Stats()
	return loop
}

// Clock returns the wall to simulation time mapping.
func (l *Loop) Clock() *Clock {
	if l == nil {
		return nil
	}
	return l.clock
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Stats returns the counters recorded after the latest tick.
func (l *Loop) Stats() LoopStats {
	if l == nil {
		return LoopStats{}
	}
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	stats := l.stats
	stats.Pending = l.buffer.Len()
	return stats
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}
	actor := cmd.actorKey()
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.stopped {
		l.queueMu.Unlock()
		return false, CommandRejectStopped
	}
	if l.config.PerActorLimit > 0 && actor != "" {
		count := l.perActorCount[actor]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(actor)
		} else {
			l.perActorCount[actor] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(actor)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance runs one tick at now: it fires every event due up to now, then
// applies the staged commands at now.
func (l *Loop) Advance(now units.Time) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	start := time.Now()
	l.tick++
	fired := l.world.RunUntil(now)
	commands := l.drainCommands()
	for _, cmd := range commands {
		l.apply(cmd)
	}
	result := LoopStepResult{
		Tick:     l.tick,
		Now:      l.world.Now(),
		Fired:    fired,
		Commands: commands,
		Duration: time.Since(start),
		World:    l.world.Stats(),
	}
	l.record(result)
	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(result)
	}
	return result
}

// Run drives the loop until the stop channel closes. It sleeps until the
// next scheduled event or the next staged command, whichever comes first.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	defer l.markStopped()

	for {
		l.Advance(l.clock.Now())

		wait := l.config.IdleTick
		if next, ok := l.world.Queue().Next(); ok {
			if until := l.clock.Until(next); until < wait {
				wait = until
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-stop:
			return
		case <-l.buffer.Ready():
		case <-timer.C:
		}
	}
}

func (l *Loop) apply(cmd Command) {
	w := l.world
	switch cmd.Type {
	case CommandJoin:
		if cmd.Join == nil {
			return
		}
		uid, player := w.SpawnPlayer(cmd.Join.Name, units.Vector{X: cmd.Join.X, Y: cmd.Join.Y})
		if cmd.Join.Reply != nil {
			select {
			case cmd.Join.Reply <- JoinResult{UID: uid, Updates: player.Updates()}:
			default:
				l.logger.Printf("[sim] join reply for %s not received, removing player", uid)
				w.Remove(uid, "unclaimed")
			}
		}
	case CommandLeave:
		reason := "left"
		if cmd.Leave != nil && cmd.Leave.Reason != "" {
			reason = cmd.Leave.Reason
		}
		w.Remove(cmd.Actor, reason)
	case CommandMove:
		if cmd.Move == nil {
			return
		}
		w.Move(cmd.Actor, units.Vector{X: cmd.Move.VX, Y: cmd.Move.VY})
	case CommandTeleport:
		if cmd.Teleport == nil {
			return
		}
		w.Teleport(cmd.Actor, units.Vector{X: cmd.Teleport.X, Y: cmd.Teleport.Y})
	case CommandRetune:
		if cmd.Retune == nil {
			return
		}
		w.Retune(cmd.Retune.Config)
	default:
		l.logger.Printf("[sim] ignoring unknown command type %q from %s", cmd.Type, cmd.actorKey())
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	l.scratch = l.buffer.DrainInto(l.scratch[:0])
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return l.scratch
}

func (l *Loop) record(result LoopStepResult) {
	l.metrics.Add(loopTicksMetricKey, 1)
	if n := len(result.Commands); n > 0 {
		l.metrics.Add(loopCommandsMetricKey, uint64(n))
	}
	if result.Fired > 0 {
		l.metrics.Add(loopEventsMetricKey, uint64(result.Fired))
	}
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	l.stats.Ticks = result.Tick
	l.stats.Commands += uint64(len(result.Commands))
	l.stats.SimTime = float64(result.Now)
	l.stats.World = result.World
}

func (l *Loop) markStopped() {
	l.queueMu.Lock()
	l.stopped = true
	l.queueMu.Unlock()
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	l.statsMu.Lock()
	l.stats.Dropped++
	l.statsMu.Unlock()
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	simulation.CommandDropped(context.Background(), l.publisher, logging.EntityRef{ID: cmd.actorKey(), Kind: logging.EntityKindSession}, simulation.CommandDroppedPayload{
		Command: string(cmd.Type),
		Reason:  reason,
	})
	if count > 0 && count&(count-1) == 0 {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s count=%d reason=%s limit=%d",
			cmd.actorKey(),
			cmd.Type,
			count,
			reason,
			l.config.PerActorLimit,
		)
	}
}
