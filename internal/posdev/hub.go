package posdev

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Hub tracks the websocket status subscriptions of connected terminals, keyed
// by device token, and pushes pairing-status events to them.
type Hub struct {
	mu    sync.Mutex
	conns map[string][]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*websocket.Conn)}
}

// Add registers a terminal's status subscription.
func (h *Hub) Add(token string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[token] = append(h.conns[token], conn)
}

// Remove drops one subscription for a token.
func (h *Hub) Remove(token string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[token]
	for i, c := range conns {
		if c == conn {
			h.conns[token] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[token]) == 0 {
		delete(h.conns, token)
	}
}

// NotifyStatus pushes a pairing-status event to every subscription of a
// device and, when the status is terminal, closes the connections.
func (h *Hub) NotifyStatus(token, status string) {
	h.mu.Lock()
	conns := append([]*websocket.Conn(nil), h.conns[token]...)
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(map[string]string{"status": status}); err != nil {
			log.Debug().Err(err).Msg("Failed to push status event")
		}
		if status == "revoked" {
			conn.Close()
		}
	}
}
