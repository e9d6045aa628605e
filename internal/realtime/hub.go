// Package realtime fans occupancy updates out to live viewers. The
// Broadcaster port is fire-and-forget, with no delivery guarantee and
// no backpressure: a slow or absent subscriber simply misses updates.
package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// TopicLotSpots carries per-spot occupancy changes.
const TopicLotSpots = "lot-spots"

// SpotOccupancyChanged is the payload broadcast when a spot flips its
// occupied flag.
type SpotOccupancyChanged struct {
	SpotID   int64 `json:"spotId"`
	Occupied bool  `json:"occupied"`
}

// Broadcaster is the port the ingestion path publishes through.
type Broadcaster interface {
	Publish(topic string, payload any)
}

// Message is what subscribers receive from the hub.
type Message struct {
	Topic   string
	Payload any
}

// Hub is an in-process topic hub implementing Broadcaster. Subscribers
// receive on buffered channels; a full channel drops the message.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Message]struct{}
	logger      *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Message]struct{}),
		logger:      logger,
	}
}

// Subscribe registers interest in a topic and returns the receiving
// channel plus an unsubscribe function. Unsubscribing closes the
// channel; it is safe to call more than once.
func (h *Hub) Subscribe(topic string) (<-chan Message, func()) {
	channel := make(chan Message, 64)

	h.mu.Lock()
	if h.subscribers[topic] == nil {
		h.subscribers[topic] = make(map[chan Message]struct{})
	}
	h.subscribers[topic][channel] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[topic]; ok {
			if _, exists := subs[channel]; exists {
				delete(subs, channel)
				close(channel)
			}
			if len(subs) == 0 {
				delete(h.subscribers, topic)
			}
		}
		h.mu.Unlock()
	}

	return channel, unsubscribe
}

// Publish delivers the payload to every current subscriber of the
// topic. Subscribers whose buffers are full are skipped.
//
// The sends stay under the read lock: with the default case they can
// never block, and the lock excludes an unsubscribe closing a channel
// between the snapshot and the send.
func (h *Hub) Publish(topic string, payload any) {
	msg := Message{Topic: topic, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for channel := range h.subscribers[topic] {
		select {
		case channel <- msg:
		default:
			h.logger.Debug("dropping realtime message, subscriber buffer full",
				zap.String("topic", topic))
		}
	}
}
