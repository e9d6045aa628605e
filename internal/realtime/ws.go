package realtime

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering is handled by the CORS layer in front.
		return true
	},
}

// WSHandler upgrades HTTP connections to websockets and relays a hub
// topic to each client as JSON frames.
type WSHandler struct {
	hub    *Hub
	topic  string
	logger *zap.Logger
}

// NewWSHandler creates a handler relaying the given topic.
func NewWSHandler(hub *Hub, topic string, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, topic: topic, logger: logger}
}

type wsFrame struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// ServeHTTP implements http.Handler.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	messages, unsubscribe := h.hub.Subscribe(h.topic)

	// Drain reads so control frames are processed and disconnects are
	// noticed; clients are not expected to send data.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			unsubscribe()
			conn.Close()
		}()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				frame, err := json.Marshal(wsFrame{Topic: msg.Topic, Payload: msg.Payload})
				if err != nil {
					h.logger.Error("failed to marshal realtime frame", zap.Error(err))
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					h.logger.Debug("websocket client gone", zap.Error(err))
					return
				}
			}
		}
	}()
}
