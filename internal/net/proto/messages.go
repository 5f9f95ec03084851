// Package proto defines the JSON frames exchanged with websocket observers.
package proto

import (
	"encoding/json"
	"fmt"

	"sulphate/internal/entity"
	"sulphate/internal/sim"
	"sulphate/internal/space"
	"sulphate/internal/units"
	"sulphate/internal/world"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	typeWelcome       = "welcome"
	typeVision        = "vision"
	typeContact       = "contact"
	typeCommandReject = "commandReject"
)

// Client message type identifiers.
const (
	TypeMove     = "move"
	TypeTeleport = "teleport"
	TypeLeave    = "leave"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeWelcome       = typeWelcome
	TypeVision        = typeVision
	TypeContact       = typeContact
	TypeCommandReject = typeCommandReject
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver    int     `json:"ver,omitempty"`
	Type   string  `json:"type"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Reason string  `json:"reason,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand maps a client message onto a simulation command. The actor
// is filled in by the session that received it.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeMove:
		return sim.Command{
			Type: sim.CommandMove,
			Move: &sim.MoveCommand{VX: msg.VX, VY: msg.VY},
		}, true
	case TypeTeleport:
		return sim.Command{
			Type:     sim.CommandTeleport,
			Teleport: &sim.TeleportCommand{X: msg.X, Y: msg.Y},
		}, true
	case TypeLeave:
		reason := msg.Reason
		if reason == "" {
			reason = "client_leave"
		}
		return sim.Command{
			Type:  sim.CommandLeave,
			Leave: &sim.LeaveCommand{Reason: reason},
		}, true
	default:
		return sim.Command{}, false
	}
}

// Body is the wire form of a kinematic snapshot.
type Body struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	T  float64 `json:"t"`
}

// Image is the wire form of an observable entity.
type Image struct {
	Radius float64 `json:"radius"`
	Body   Body    `json:"body"`
}

// ImageOf converts an image for the wire. A nil image stays nil.
func ImageOf(img *space.Image) *Image {
	if img == nil {
		return nil
	}
	at := img.Body.LastUpdate()
	pos := img.Body.Position(at)
	vel := img.Body.Velocity()
	return &Image{
		Radius: float64(img.Radius()),
		Body:   Body{X: pos.X, Y: pos.Y, VX: vel.X, VY: vel.Y, T: float64(at)},
	}
}

// Position returns where the body is at t.
func (b Body) Position(t float64) units.Position {
	dt := t - b.T
	return units.Vector{X: b.X + b.VX*dt, Y: b.Y + b.VY*dt}
}

// Welcome is sent once when a session's player is created.
type Welcome struct {
	ID     string
	Radius float64
	At     units.Time
}

// EncodeWelcome renders the join acknowledgement.
func EncodeWelcome(msg Welcome) ([]byte, error) {
	frame := struct {
		Ver    int     `json:"ver"`
		Type   string  `json:"type"`
		ID     string  `json:"id"`
		Radius float64 `json:"radius"`
		At     float64 `json:"at"`
	}{
		Ver:    Version,
		Type:   typeWelcome,
		ID:     msg.ID,
		Radius: msg.Radius,
		At:     float64(msg.At),
	}
	return json.Marshal(frame)
}

// VisionFrame reports a change in what the player can see. Image is
// omitted when the subject disappeared.
type VisionFrame struct {
	Ver     int     `json:"ver"`
	Type    string  `json:"type"`
	At      float64 `json:"at"`
	Subject string  `json:"subject"`
	Image   *Image  `json:"image,omitempty"`
	Removed bool    `json:"removed,omitempty"`
}

// ContactFrame reports a collision, release or disappearance involving the
// player.
type ContactFrame struct {
	Ver     int     `json:"ver"`
	Type    string  `json:"type"`
	At      float64 `json:"at"`
	Kind    string  `json:"kind"`
	Subject string  `json:"subject,omitempty"`
	Image   *Image  `json:"image,omitempty"`
}

// EncodeUpdate renders a world update. Created updates become welcome
// frames.
func EncodeUpdate(update world.Update) ([]byte, error) {
	switch update.Kind {
	case world.UpdateCreated:
		radius := 0.0
		if update.Image != nil {
			radius = float64(update.Image.Radius())
		}
		return EncodeWelcome(Welcome{ID: update.Self.String(), Radius: radius, At: update.At})
	case world.UpdateVision:
		return json.Marshal(VisionFrame{
			Ver:     Version,
			Type:    typeVision,
			At:      float64(update.At),
			Subject: update.Subject.String(),
			Image:   ImageOf(update.Image),
			Removed: update.Image == nil,
		})
	case world.UpdateContact:
		frame := ContactFrame{
			Ver:   Version,
			Type:  typeContact,
			At:    float64(update.At),
			Kind:  string(update.Contact),
			Image: ImageOf(update.Image),
		}
		if update.Subject != (entity.UID{}) {
			frame.Subject = update.Subject.String()
		}
		return json.Marshal(frame)
	default:
		return nil, fmt.Errorf("proto: unknown update kind %q", update.Kind)
	}
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Command string
	Reason  string
	Retry   bool
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver     int    `json:"ver"`
		Type    string `json:"type"`
		Command string `json:"command,omitempty"`
		Reason  string `json:"reason"`
		Retry   bool   `json:"retry,omitempty"`
	}{
		Ver:     Version,
		Type:    typeCommandReject,
		Command: msg.Command,
		Reason:  msg.Reason,
		Retry:   msg.Retry,
	}
	return json.Marshal(frame)
}
