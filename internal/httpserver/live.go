package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/corvidwatch/sentrywatch/internal/livebus"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
)

// LiveHandler upgrades GET /ws/live to a long-lived, server-push-only
// channel: client frames are read and discarded (heartbeat only), and every
// broadcast on the live bus is forwarded to the socket.
type LiveHandler struct {
	bus      *livebus.Bus
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewLiveHandler builds a LiveHandler over the shared live bus. The upgrader
// accepts every origin: its CheckOrigin always returns true.
func NewLiveHandler(bus *livebus.Bus, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handle implements GET /ws/live.
func (h *LiveHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	id := uuid.New().String()
	sub := h.bus.Subscribe(id)

	go h.readPump(conn, id)
	h.writePump(conn, sub, id)
}

// readPump drains and discards every client frame. Its only job is to keep
// the read deadline alive via pong handling and to notice the socket close.
func (h *LiveHandler) readPump(conn *websocket.Conn, id string) {
	defer func() {
		h.bus.Unsubscribe(id)
		conn.Close()
	}()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(livePongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards every broadcast event to the socket until the
// subscriber is dropped (queue overflow) or the connection errors out.
func (h *LiveHandler) writePump(conn *websocket.Conn, sub *livebus.Subscriber, id string) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		h.bus.Unsubscribe(id)
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.Recv():
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
