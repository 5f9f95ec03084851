// Package world owns the entity store, the collision index and the contact
// table, and turns body changes into scheduled contact events and observer
// notifications. Everything in it runs on the simulation goroutine.
package world

import (
	"context"

	"sulphate/internal/entity"
	"sulphate/internal/sched"
	"sulphate/internal/space"
	"sulphate/internal/telemetry"
	"sulphate/internal/units"
	"sulphate/logging"
)

const (
	metricStaleEvents    = "world_events_stale_total"
	metricContactsBegan  = "world_contacts_began_total"
	metricContactsEnded  = "world_contacts_ended_total"
	metricUpdatesDropped = "world_updates_dropped_total"
)

// Deps bundles runtime dependencies required to construct a World instance.
type Deps struct {
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	// Start is the simulation time the scheduler clock begins at.
	Start units.Time
}

// World is the simulation state of one server.
type World struct {
	config Config
	tuning space.Tuning

	matter   *entity.Heap
	index    *space.Index
	contacts *space.ContactTable
	time     *sched.Queue[*World]

	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics

	stale   uint64
	dropped uint64
}

// Stats summarises the world for diagnostics.
type Stats struct {
	Now       float64 `json:"now"`
	Entities  int     `json:"entities"`
	Tracked   int     `json:"tracked"`
	Contacts  int     `json:"contacts"`
	Pending   int     `json:"pendingEvents"`
	Fired     uint64  `json:"firedEvents"`
	Stale     uint64  `json:"staleEvents"`
	Dropped   uint64  `json:"droppedUpdates"`
	Margin    float64 `json:"margin"`
	BounceFor float64 `json:"bounceWindow"`
	Config    Config  `json:"config"`
}

// New constructs a world instance with normalized configuration.
func New(cfg Config, deps Deps) (*World, error) {
	normalized := cfg.normalized()

	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	logger := deps.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}

	return &World{
		config:    normalized,
		tuning:    normalized.Tuning(),
		matter:    entity.NewHeap(),
		index:     space.NewIndex(),
		contacts:  space.NewContactTable(),
		time:      sched.NewQueue[*World](deps.Start),
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Config returns the normalized configuration in effect.
func (w *World) Config() Config {
	if w == nil {
		return Config{}
	}
	return w.config
}

// Tuning returns the solver constants in effect.
func (w *World) Tuning() space.Tuning {
	if w == nil {
		return space.DefaultTuning()
	}
	return w.tuning
}

// Retune replaces the configuration. Pending events keep the times they
// were scheduled with; new evaluations and spawns use the new values.
func (w *World) Retune(cfg Config) {
	if w == nil {
		return
	}
	w.config = cfg.normalized()
	w.tuning = w.config.Tuning()
	w.logger.Printf("[world] retuned margin=%g epsilon=%g bounce=%g", w.tuning.Margin, w.tuning.Epsilon, w.tuning.BounceWindow)
}

// Now reads the scheduler clock.
func (w *World) Now() units.Time {
	return w.time.Now()
}

// Queue exposes the scheduler driving the world.
func (w *World) Queue() *sched.Queue[*World] {
	return w.time
}

// RunUntil fires every event due at or before t and leaves the clock at t.
func (w *World) RunUntil(t units.Time) int {
	return w.time.InvokeUntil(w, t)
}

// Lookup returns the entity value stored under uid.
func (w *World) Lookup(uid entity.UID) (any, bool) {
	return w.matter.Get(uid)
}

// UIDs lists live entities in insertion order.
func (w *World) UIDs() []entity.UID {
	return w.matter.UIDs()
}

// Image returns what an observer currently sees of uid, or nil.
func (w *World) Image(uid entity.UID) *space.Image {
	entry, ok := w.index.Get(uid)
	if !ok {
		return nil
	}
	body := entry.Body
	return w.imageWith(uid, &body)
}

func (w *World) imageWith(uid entity.UID, body *space.Body) *space.Image {
	if body == nil {
		return nil
	}
	value, ok := w.matter.Get(uid)
	if !ok {
		return nil
	}
	shape := displayOf(uid, value).Shape()
	if shape == nil {
		return nil
	}
	return &space.Image{Shape: shape, Body: *body}
}

// InContact reports whether a and b are currently touching.
func (w *World) InContact(a, b entity.UID) bool {
	return w.contacts.Has(a, b)
}

// Contacts lists every touching pair.
func (w *World) Contacts() []space.Pair {
	return w.contacts.Pairs()
}

// State returns the physics state recorded for uid.
func (w *World) State(uid entity.UID) (space.PhysicsState, bool) {
	entry, ok := w.index.Get(uid)
	if !ok {
		return space.PhysicsState{}, false
	}
	return entry.State, true
}

// Stats summarises the world.
func (w *World) Stats() Stats {
	if w == nil {
		return Stats{}
	}
	return Stats{
		Now:       float64(w.Now()),
		Entities:  w.matter.Len(),
		Tracked:   w.index.Len(),
		Contacts:  w.contacts.Len(),
		Pending:   w.time.Len(),
		Fired:     w.time.Fired(),
		Stale:     w.stale,
		Dropped:   w.dropped,
		Margin:    float64(w.tuning.Margin),
		BounceFor: float64(w.tuning.BounceWindow),
		Config:    w.config,
	}
}

func ref(uid entity.UID) logging.EntityRef {
	return logging.EntityRef{ID: uid.String(), Kind: logging.EntityKind(uid.Kind.String())}
}

func (w *World) ctx() context.Context {
	return context.Background()
}
