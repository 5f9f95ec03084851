package network

import (
	"context"

	"sulphate/logging"
)

const (
	// EventSessionOpened is emitted when a websocket observer connects.
	EventSessionOpened logging.EventType = "network.session_opened"
	// EventSessionClosed is emitted when a websocket observer goes away.
	EventSessionClosed logging.EventType = "network.session_closed"
	// EventMalformedMessage is emitted when a client frame cannot be decoded.
	EventMalformedMessage logging.EventType = "network.malformed_message"
)

// SessionPayload describes a session transition.
type SessionPayload struct {
	Remote string `json:"remote,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// MalformedPayload describes a rejected frame.
type MalformedPayload struct {
	Error string `json:"error"`
	Bytes int    `json:"bytes"`
}

// SessionOpened publishes a session start.
func SessionOpened(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload) {
	publish(ctx, pub, EventSessionOpened, logging.SeverityInfo, actor, payload)
}

// SessionClosed publishes a session end.
func SessionClosed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload) {
	publish(ctx, pub, EventSessionClosed, logging.SeverityInfo, actor, payload)
}

// MalformedMessage warns about an undecodable client frame.
func MalformedMessage(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload MalformedPayload) {
	publish(ctx, pub, EventMalformedMessage, logging.SeverityWarn, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, kind logging.EventType, severity logging.Severity, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     kind,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}
