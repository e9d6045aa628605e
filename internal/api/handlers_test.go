package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/smartpark/occupancy-service/internal/config"
	"github.com/smartpark/occupancy-service/internal/db"
	"github.com/smartpark/occupancy-service/internal/occupancy"
	"github.com/smartpark/occupancy-service/internal/realtime"
	"github.com/smartpark/occupancy-service/internal/store/memory"
	"github.com/smartpark/occupancy-service/internal/viewer"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newTestRouter(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()

	str := memory.NewStore()
	logger := zap.NewNop()
	hub := realtime.NewHub(logger)
	svc := occupancy.NewService(str, hub, logger)
	tracker := viewer.NewTracker(str, logger)
	handlers := NewHandlers(svc, tracker, str, str, fixedClock{t0}, logger)
	ws := realtime.NewWSHandler(hub, realtime.TopicLotSpots, logger)
	cfg := &config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"*"}}}

	return NewRouter(handlers, ws, cfg), str
}

func seedLotWithSpot(str *memory.Store) {
	sensorID := "000100013922"
	str.AddLot(db.ParkingLot{ID: 1, Name: "Central Garage", Capacity: 2})
	str.AddSpot(db.ParkingSpot{ID: 11, LotID: 1, Row: 1, Column: 1, SensorID: &sensorID})
}

func TestSensorUpdate_RawLine(t *testing.T) {
	router, str := newTestRouter(t)
	seedLotWithSpot(str)

	req := httptest.NewRequest(http.MethodPost, "/sensor-updates",
		strings.NewReader("0001,0001,39,22,true"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	spot, _ := str.GetSpot(11)
	if !spot.Occupied {
		t.Error("Expected spot 11 to be occupied after raw update")
	}
}

func TestSensorUpdate_StructuredJSON(t *testing.T) {
	router, str := newTestRouter(t)
	seedLotWithSpot(str)

	body := `{"lotId":"1","controllerId":"1","echoPin":39,"trigPin":22,"occupied":true}`
	req := httptest.NewRequest(http.MethodPost, "/sensor-updates", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	spot, _ := str.GetSpot(11)
	if !spot.Occupied {
		t.Error("Expected spot 11 to be occupied after structured update")
	}
}

func TestSensorUpdate_MalformedLineRejected(t *testing.T) {
	router, str := newTestRouter(t)
	seedLotWithSpot(str)

	req := httptest.NewRequest(http.MethodPost, "/sensor-updates",
		strings.NewReader("invalid,format"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", rec.Code)
	}

	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected JSON body, got error %v", err)
	}
	if resp.Success {
		t.Error("Expected success false for malformed line")
	}
}

func TestTrackViewing_ReturnsActiveCount(t *testing.T) {
	router, str := newTestRouter(t)
	seedLotWithSpot(str)

	req := httptest.NewRequest(http.MethodPost, "/lots/1/viewings",
		strings.NewReader(`{"userId":5}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		LotID             int64 `json:"lotId"`
		ActiveViewerCount int   `json:"activeViewerCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.LotID != 1 || resp.ActiveViewerCount != 1 {
		t.Errorf("Expected lot 1 with 1 viewer, got %+v", resp)
	}

	if _, ok := str.GetLease(5, 1); !ok {
		t.Error("Expected a lease for (5, 1)")
	}
}

func TestViewerCount_EmptyLot(t *testing.T) {
	router, str := newTestRouter(t)
	seedLotWithSpot(str)

	req := httptest.NewRequest(http.MethodGet, "/lots/1/viewings/count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		ActiveViewerCount int `json:"activeViewerCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ActiveViewerCount != 0 {
		t.Errorf("Expected 0 viewers, got %d", resp.ActiveViewerCount)
	}
}

func TestLotDetail_TracksViewerWhenUserGiven(t *testing.T) {
	router, str := newTestRouter(t)
	seedLotWithSpot(str)

	req := httptest.NewRequest(http.MethodGet, "/lots/1?userId=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		LotID    int64 `json:"lotId"`
		Capacity int   `json:"capacity"`
		Full     bool  `json:"full"`
		Spots    []any `json:"spots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.LotID != 1 || resp.Capacity != 2 || resp.Full {
		t.Errorf("Expected non-full lot 1 with capacity 2, got %+v", resp)
	}
	if len(resp.Spots) != 1 {
		t.Errorf("Expected 1 spot, got %d", len(resp.Spots))
	}

	lease, ok := str.GetLease(5, 1)
	if !ok {
		t.Fatal("Expected viewing the detail page to create a lease")
	}
	if !lease.ExpiresAt.Equal(t0.Add(viewer.LeaseTTL)) {
		t.Errorf("Expected lease expiry %v, got %v", t0.Add(viewer.LeaseTTL), lease.ExpiresAt)
	}
}

func TestLotDetail_UnknownLot(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/lots/404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
