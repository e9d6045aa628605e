package occupancy

import (
	"context"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/smartpark/occupancy-service/internal/db"
	"github.com/smartpark/occupancy-service/internal/realtime"
	"github.com/smartpark/occupancy-service/internal/store/memory"
)

type captureBroadcaster struct {
	published []realtime.Message
}

func (c *captureBroadcaster) Publish(topic string, payload any) {
	c.published = append(c.published, realtime.Message{Topic: topic, Payload: payload})
}

func newTestService() (*Service, *memory.Store, *captureBroadcaster) {
	str := memory.NewStore()
	broadcaster := &captureBroadcaster{}
	svc := NewService(str, broadcaster, zap.NewNop())
	return svc, str, broadcaster
}

func seedSpot(str *memory.Store, spotID, lotID int64, sensorID string, occupied bool) {
	str.AddSpot(db.ParkingSpot{
		ID:       spotID,
		LotID:    lotID,
		Occupied: occupied,
		SensorID: &sensorID,
	})
}

func TestApplyReading_FlipsSpotAndBroadcasts(t *testing.T) {
	svc, str, broadcaster := newTestService()
	seedSpot(str, 42, 1, "000100013922", false)

	ok := svc.ApplyReading(context.Background(), Reading{
		LotID:        "1",
		ControllerID: "1",
		EchoPin:      39,
		TrigPin:      22,
		Occupied:     true,
	})
	if !ok {
		t.Fatal("Expected reading to apply")
	}

	spot, _ := str.GetSpot(42)
	if !spot.Occupied {
		t.Error("Expected spot 42 to be occupied")
	}

	if len(broadcaster.published) != 1 {
		t.Fatalf("Expected 1 broadcast, got %d", len(broadcaster.published))
	}
	msg := broadcaster.published[0]
	if msg.Topic != realtime.TopicLotSpots {
		t.Errorf("Expected topic %s, got %s", realtime.TopicLotSpots, msg.Topic)
	}
	change := msg.Payload.(realtime.SpotOccupancyChanged)
	if change.SpotID != 42 || !change.Occupied {
		t.Errorf("Expected change for spot 42 occupied, got %+v", change)
	}
}

func TestApplyReading_PaddedAndUnpaddedIDsHitTheSameSpot(t *testing.T) {
	svc, str, _ := newTestService()
	seedSpot(str, 7, 1, "000100013922", false)

	ok := svc.ApplyReading(context.Background(), Reading{
		LotID:        "0001",
		ControllerID: "0001",
		EchoPin:      39,
		TrigPin:      22,
		Occupied:     true,
	})
	if !ok {
		t.Fatal("Expected padded-id reading to apply")
	}

	spot, _ := str.GetSpot(7)
	if !spot.Occupied {
		t.Error("Expected padded-id reading to resolve to the same spot")
	}
}

func TestApplyReading_UnknownSensorFails(t *testing.T) {
	svc, str, broadcaster := newTestService()
	seedSpot(str, 42, 1, "000100013922", false)

	ok := svc.ApplyReading(context.Background(), Reading{
		LotID:        "9",
		ControllerID: "9",
		EchoPin:      1,
		TrigPin:      2,
		Occupied:     true,
	})
	if ok {
		t.Error("Expected unknown sensor to fail")
	}
	if len(broadcaster.published) != 0 {
		t.Error("Expected no broadcast on failure")
	}
	spot, _ := str.GetSpot(42)
	if spot.Occupied {
		t.Error("Expected existing spot to stay untouched")
	}
}

func TestApplyReading_ReapplyIsIdempotent(t *testing.T) {
	svc, str, broadcaster := newTestService()
	seedSpot(str, 42, 1, "000100013922", false)

	reading := Reading{LotID: "1", ControllerID: "1", EchoPin: 39, TrigPin: 22, Occupied: true}
	if !svc.ApplyReading(context.Background(), reading) {
		t.Fatal("Expected first apply to succeed")
	}
	if !svc.ApplyReading(context.Background(), reading) {
		t.Fatal("Expected second apply to succeed")
	}

	spot, _ := str.GetSpot(42)
	if !spot.Occupied {
		t.Error("Expected spot to remain occupied")
	}
	if len(broadcaster.published) != 2 {
		t.Fatalf("Expected 2 broadcasts, got %d", len(broadcaster.published))
	}
	if !reflect.DeepEqual(broadcaster.published[0], broadcaster.published[1]) {
		t.Errorf("Expected identical broadcast payloads, got %+v and %+v",
			broadcaster.published[0], broadcaster.published[1])
	}
}

func TestApplyRaw_MalformedLineTouchesNothing(t *testing.T) {
	svc, str, broadcaster := newTestService()
	seedSpot(str, 42, 1, "000100013922", false)

	if svc.ApplyRaw(context.Background(), "invalid,format") {
		t.Error("Expected malformed line to fail")
	}
	if len(broadcaster.published) != 0 {
		t.Error("Expected no broadcast for malformed line")
	}
	spot, _ := str.GetSpot(42)
	if spot.Occupied {
		t.Error("Expected no spot mutation for malformed line")
	}
}

func TestApplyRaw_ValidLine(t *testing.T) {
	svc, str, _ := newTestService()
	seedSpot(str, 42, 1, "000100013922", false)

	if !svc.ApplyRaw(context.Background(), "0001,0001,39,22,true") {
		t.Fatal("Expected raw line to apply")
	}
	spot, _ := str.GetSpot(42)
	if !spot.Occupied {
		t.Error("Expected spot to be occupied after raw apply")
	}
}

func TestApplyBatch_BroadcastsOneListPayload(t *testing.T) {
	svc, str, broadcaster := newTestService()
	seedSpot(str, 1, 1, "000100010102", false)
	seedSpot(str, 2, 1, "000100010304", false)

	ok := svc.ApplyBatch(context.Background(), []Reading{
		{LotID: "1", ControllerID: "1", EchoPin: 1, TrigPin: 2, Occupied: true},
		{LotID: "1", ControllerID: "1", EchoPin: 3, TrigPin: 4, Occupied: true},
	})
	if !ok {
		t.Fatal("Expected batch to apply")
	}

	if len(broadcaster.published) != 1 {
		t.Fatalf("Expected a single batch broadcast, got %d", len(broadcaster.published))
	}
	changes := broadcaster.published[0].Payload.([]realtime.SpotOccupancyChanged)
	if len(changes) != 2 {
		t.Errorf("Expected 2 changes in batch payload, got %d", len(changes))
	}
}
