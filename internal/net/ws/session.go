package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sulphate/internal/entity"
	"sulphate/internal/net/intake"
	"sulphate/internal/net/proto"
	"sulphate/internal/sim"
	"sulphate/internal/world"
	"sulphate/logging"
	"sulphate/logging/network"
)

const (
	writeWait       = 5 * time.Second
	leaveAttempts   = 10
	leaveRetryDelay = 50 * time.Millisecond
)

type session struct {
	h       *Handler
	conn    *websocket.Conn
	uid     entity.UID
	updates <-chan world.Update

	writeMu sync.Mutex
	quit    chan struct{}
	pumped  chan struct{}
}

func newSession(conn *websocket.Conn, result sim.JoinResult, h *Handler) *session {
	return &session{
		h:       h,
		conn:    conn,
		uid:     result.UID,
		updates: result.Updates,
		quit:    make(chan struct{}),
		pumped:  make(chan struct{}),
	}
}

func (s *session) ref() logging.EntityRef {
	return logging.EntityRef{ID: s.uid.String(), Kind: logging.EntityKindSession}
}

// serve runs the write pump in the background and reads client frames
// until the connection fails. It returns why the session ended.
func (s *session) serve() string {
	go s.pump()

	reason := s.read()
	close(s.quit)
	s.conn.Close()
	<-s.pumped
	return reason
}

func (s *session) read() string {
	left := false
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if left {
				return "left"
			}
			s.leave("disconnect")
			return "disconnect"
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			s.h.logger.Printf("discarding malformed message from %s: %v", s.uid, err)
			network.MalformedMessage(context.Background(), s.h.publisher, s.ref(), network.MalformedPayload{
				Error: err.Error(),
				Bytes: len(payload),
			})
			continue
		}
		if left {
			continue
		}
		cmd, accepted, reason := intake.StageClientCommand(intake.CommandContext{Engine: s.h.loop}, s.uid, msg)
		if !accepted {
			if reason == sim.CommandRejectInvalid {
				s.h.logger.Printf("rejecting %q from %s", msg.Type, s.uid)
			}
			reject, err := proto.EncodeCommandReject(proto.CommandReject{
				Command: msg.Type,
				Reason:  reason,
				Retry:   reason == sim.CommandRejectQueueLimit,
			})
			if err != nil {
				s.h.logger.Printf("failed to marshal reject for %s: %v", s.uid, err)
				continue
			}
			if err := s.write(reject); err != nil {
				s.leave("write_failed")
				return "write failed"
			}
			continue
		}
		if cmd.Type == sim.CommandLeave {
			left = true
		}
	}
}

// leave removes the player. It bypasses intake so a misbehaving client
// cannot keep its player alive.
// A throttled leave is retried since the per-actor budget refills every
// tick.
func (s *session) leave(reason string) {
	cmd := sim.Command{
		Actor:   s.uid,
		ActorID: s.uid.String(),
		Type:    sim.CommandLeave,
		Leave:   &sim.LeaveCommand{Reason: reason},
	}
	for attempt := 0; attempt < leaveAttempts; attempt++ {
		ok, rejected := s.h.loop.Enqueue(cmd)
		if ok {
			return
		}
		if rejected != sim.CommandRejectQueueLimit {
			s.h.logger.Printf("leave for %s rejected: %s", s.uid, rejected)
			return
		}
		time.Sleep(leaveRetryDelay)
	}
	s.h.logger.Printf("leave for %s still throttled after %d attempts", s.uid, leaveAttempts)
}

// pump forwards player updates until the player is removed or the reader
// gives up.
func (s *session) pump() {
	defer close(s.pumped)
	for {
		select {
		case <-s.quit:
			return
		case update, ok := <-s.updates:
			if !ok {
				message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "removed")
				s.writeMu.Lock()
				_ = s.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
				s.writeMu.Unlock()
				s.conn.Close()
				return
			}
			data, err := proto.EncodeUpdate(update)
			if err != nil {
				s.h.logger.Printf("failed to marshal update for %s: %v", s.uid, err)
				continue
			}
			if err := s.write(data); err != nil {
				s.conn.Close()
				return
			}
		}
	}
}

func (s *session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
