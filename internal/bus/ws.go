package bus

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSEndpoint adapts a websocket connection into a bus Endpoint. Writes are
// serialized with a mutex; gorilla connections allow one concurrent writer.
type WSEndpoint struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSEndpoint wraps an upgraded websocket connection.
func NewWSEndpoint(conn *websocket.Conn) *WSEndpoint {
	return &WSEndpoint{conn: conn}
}

func (e *WSEndpoint) Send(_ context.Context, ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.WriteJSON(ev)
}

// subscribeMessage is the first frame a client sends after connecting.
type subscribeMessage struct {
	AgentID uuid.UUID `json:"agent_id"`
	Topics  []string  `json:"topics"`
}

// HandleWebSocket upgrades the connection, reads the subscribe frame, and
// keeps the endpoint registered until the connection closes. The read loop
// only exists to detect disconnects; clients receive events, they do not
// send further frames.
func HandleWebSocket(b Bus, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			log.Warn("invalid subscribe frame", "error", err)
			return
		}
		if sub.AgentID == uuid.Nil || len(sub.Topics) == 0 {
			_ = conn.WriteJSON(map[string]string{"error": "agent_id and topics are required"})
			return
		}

		ep := NewWSEndpoint(conn)
		b.Subscribe(sub.AgentID, ep, sub.Topics)
		defer b.Unsubscribe(sub.AgentID, ep)

		_ = conn.WriteJSON(map[string]any{"type": "subscribed", "topics": sub.Topics})
		log.Info("endpoint subscribed", "agent_id", sub.AgentID, "topics", sub.Topics)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn("websocket read error", "agent_id", sub.AgentID, "error", err)
				}
				return
			}
		}
	}
}
