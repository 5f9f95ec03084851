// Package ws serves websocket observers. Each connection joins the world as
// a player, streams the player's updates out and feeds client intents into
// the simulation loop.
package ws

import (
	"context"
	"log"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"sulphate/internal/sim"
	"sulphate/internal/units"
	"sulphate/logging"
	"sulphate/logging/network"
)

const defaultJoinTimeout = 5 * time.Second

// Enqueuer accepts commands for the simulation loop.
type Enqueuer interface {
	Enqueue(cmd sim.Command) (bool, string)
}

type HandlerConfig struct {
	Logger      *log.Logger
	Publisher   logging.Publisher
	ReadBuffer  int
	WriteBuffer int
	// Spawn is where joining players are placed.
	Spawn       units.Position
	JoinTimeout time.Duration
}

type Handler struct {
	loop        Enqueuer
	logger      *log.Logger
	publisher   logging.Publisher
	spawn       units.Position
	joinTimeout time.Duration
	upgrader    websocket.Upgrader
}

func NewHandler(loop Enqueuer, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	readBuffer := cfg.ReadBuffer
	if readBuffer <= 0 {
		readBuffer = 1024
	}
	writeBuffer := cfg.WriteBuffer
	if writeBuffer <= 0 {
		writeBuffer = 1024
	}
	joinTimeout := cfg.JoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = defaultJoinTimeout
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  readBuffer,
		WriteBufferSize: writeBuffer,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		loop:        loop,
		logger:      logger,
		publisher:   publisher,
		spawn:       cfg.Spawn,
		joinTimeout: joinTimeout,
		upgrader:    upgrader,
	}
}

// Handle upgrades the request and runs the session until either side goes
// away. The optional "name" query parameter labels the player.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "anonymous"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	result, reason, ok := h.join(r.Context(), name)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason)
		_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
		conn.Close()
		return
	}

	s := newSession(conn, result, h)
	network.SessionOpened(r.Context(), h.publisher, s.ref(), network.SessionPayload{Remote: r.RemoteAddr})
	closeReason := s.serve()
	network.SessionClosed(context.Background(), h.publisher, s.ref(), network.SessionPayload{
		Remote: r.RemoteAddr,
		Reason: closeReason,
	})
}

func (h *Handler) join(ctx context.Context, name string) (sim.JoinResult, string, bool) {
	reply := make(chan sim.JoinResult, 1)
	ok, reason := h.loop.Enqueue(sim.Command{
		ActorID: "join:" + name,
		Type:    sim.CommandJoin,
		Join:    &sim.JoinCommand{Name: name, X: h.spawn.X, Y: h.spawn.Y, Reply: reply},
	})
	if !ok {
		h.logger.Printf("join rejected for %s: %s", name, reason)
		return sim.JoinResult{}, reason, false
	}

	timer := time.NewTimer(h.joinTimeout)
	defer timer.Stop()
	select {
	case result := <-reply:
		return result, "", true
	case <-timer.C:
		return sim.JoinResult{}, "join timed out", false
	case <-ctx.Done():
		return sim.JoinResult{}, "request cancelled", false
	}
}
