package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// statusEvent is one pairing-status push from the server.
type statusEvent struct {
	Status string `json:"status"`
}

// Watch subscribes to the server's device-status stream and feeds every event
// through the same trust reducer the revalidator uses, so pushed revocations
// get the same stickiness guarantees. It blocks until the context is
// cancelled or the connection drops; reconnecting is the caller's concern. A
// connection failure is connectivity, not revocation, and leaves trust alone.
func (m *Manager) Watch(ctx context.Context) error {
	m.mu.Lock()
	deviceToken := m.rec.DeviceToken
	m.mu.Unlock()

	if deviceToken == "" {
		return ErrNotPaired
	}

	wsURL := websocketURL(m.client.BaseURL()) + "/ws/device"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+deviceToken)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to connect to status stream: %w", err)
	}
	defer conn.Close()

	log.Debug().Str("url", wsURL).Msg("Watching device status stream")

	// Unblock the read loop when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event statusEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("status stream closed: %w", err)
		}

		outcome := trustOutcomeFrom(event.Status, nil)
		log.Debug().Str("status", event.Status).Msg("Device status event received")
		m.applyTrust(outcome)

		if outcome == TrustRevoked {
			return nil
		}
	}
}

func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
