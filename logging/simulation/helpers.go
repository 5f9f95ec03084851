package simulation

import (
	"context"

	"sulphate/logging"
)

const (
	// EventContactBegan is emitted when a pair enters the contact table.
	EventContactBegan logging.EventType = "simulation.contact_began"
	// EventContactReleased is emitted when a pair separates on schedule.
	EventContactReleased logging.EventType = "simulation.contact_released"
	// EventContactDisappeared is emitted when a contact ends because one side vanished or jumped away.
	EventContactDisappeared logging.EventType = "simulation.contact_disappeared"
	// EventStaleEventDropped is emitted when a scheduled event no longer matches the state it was planned against.
	EventStaleEventDropped logging.EventType = "simulation.stale_event_dropped"
	// EventUpdateDropped is emitted when an observer's outbound channel is full.
	EventUpdateDropped logging.EventType = "simulation.update_dropped"
	// EventCommandDropped is emitted when the inbound command queue rejects a command.
	EventCommandDropped logging.EventType = "simulation.command_dropped"
)

// ContactPayload describes the geometry of a contact transition.
type ContactPayload struct {
	ReleaseAt float64 `json:"releaseAt,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// StaleEventPayload names the event kind that was discarded.
type StaleEventPayload struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

// UpdateDroppedPayload counts the updates an observer has lost.
type UpdateDroppedPayload struct {
	Update string `json:"update"`
	Total  uint64 `json:"total"`
}

// CommandDroppedPayload names the rejected command.
type CommandDroppedPayload struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

func contact(ctx context.Context, pub logging.Publisher, kind logging.EventType, simTime float64, actor, target logging.EntityRef, payload ContactPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     kind,
		SimTime:  simTime,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryContact,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// ContactBegan publishes a contact entry.
func ContactBegan(ctx context.Context, pub logging.Publisher, simTime float64, actor, target logging.EntityRef, payload ContactPayload) {
	contact(ctx, pub, EventContactBegan, simTime, actor, target, payload)
}

// ContactReleased publishes a scheduled contact exit.
func ContactReleased(ctx context.Context, pub logging.Publisher, simTime float64, actor, target logging.EntityRef, payload ContactPayload) {
	contact(ctx, pub, EventContactReleased, simTime, actor, target, payload)
}

// ContactDisappeared publishes a contact broken by disappearance or relocation.
func ContactDisappeared(ctx context.Context, pub logging.Publisher, simTime float64, actor, target logging.EntityRef, payload ContactPayload) {
	contact(ctx, pub, EventContactDisappeared, simTime, actor, target, payload)
}

// StaleEventDropped publishes a debug record for a self-invalidated event.
func StaleEventDropped(ctx context.Context, pub logging.Publisher, simTime float64, actor logging.EntityRef, payload StaleEventPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventStaleEventDropped,
		SimTime:  simTime,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategorySystem,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// UpdateDropped warns that an observer is not keeping up.
func UpdateDropped(ctx context.Context, pub logging.Publisher, simTime float64, actor logging.EntityRef, payload UpdateDroppedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventUpdateDropped,
		SimTime:  simTime,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// CommandDropped warns that inbound backpressure rejected a command.
func CommandDropped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload CommandDroppedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventCommandDropped,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}
