package realtime

import (
	"testing"

	"go.uber.org/zap"
)

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())

	first, stopFirst := hub.Subscribe(TopicLotSpots)
	second, stopSecond := hub.Subscribe(TopicLotSpots)
	defer stopFirst()
	defer stopSecond()

	hub.Publish(TopicLotSpots, SpotOccupancyChanged{SpotID: 7, Occupied: true})

	for _, channel := range []<-chan Message{first, second} {
		select {
		case msg := <-channel:
			payload, ok := msg.Payload.(SpotOccupancyChanged)
			if !ok {
				t.Fatalf("Expected SpotOccupancyChanged payload, got %T", msg.Payload)
			}
			if payload.SpotID != 7 || !payload.Occupied {
				t.Errorf("Expected spot 7 occupied, got %+v", payload)
			}
		default:
			t.Fatal("Expected a buffered message for each subscriber")
		}
	}
}

func TestHub_UnsubscribedChannelStopsReceiving(t *testing.T) {
	hub := NewHub(zap.NewNop())

	channel, unsubscribe := hub.Subscribe(TopicLotSpots)
	unsubscribe()

	hub.Publish(TopicLotSpots, SpotOccupancyChanged{SpotID: 1, Occupied: false})

	if _, open := <-channel; open {
		t.Error("Expected channel to be closed after unsubscribe")
	}
}

func TestHub_PublishToTopicWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub(zap.NewNop())
	// Must not panic or block.
	hub.Publish("unwatched", SpotOccupancyChanged{SpotID: 1, Occupied: true})
}

func TestHub_PublishRacingUnsubscribeDoesNotPanic(t *testing.T) {
	hub := NewHub(zap.NewNop())

	// A sensor reading broadcasting while a websocket viewer
	// disconnects must never hit a closed channel. A panic in the
	// publishing goroutine fails the test.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			hub.Publish(TopicLotSpots, SpotOccupancyChanged{SpotID: int64(i), Occupied: true})
		}
	}()

	for i := 0; i < 1000; i++ {
		channel, unsubscribe := hub.Subscribe(TopicLotSpots)
		// Fill the buffer so in-flight publishes take the send path.
		for len(channel) < cap(channel)/2 {
			hub.Publish(TopicLotSpots, SpotOccupancyChanged{SpotID: -1, Occupied: false})
		}
		unsubscribe()
	}

	<-done
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(zap.NewNop())

	channel, unsubscribe := hub.Subscribe(TopicLotSpots)
	defer unsubscribe()

	for i := 0; i < 200; i++ {
		hub.Publish(TopicLotSpots, SpotOccupancyChanged{SpotID: int64(i), Occupied: true})
	}

	// Buffer holds 64; the rest were dropped rather than blocking.
	if len(channel) != 64 {
		t.Errorf("Expected a full buffer of 64 messages, got %d", len(channel))
	}
}
