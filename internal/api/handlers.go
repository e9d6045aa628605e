// Package api contains the chi HTTP adapter in front of the occupancy
// pipeline.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/smartpark/occupancy-service/internal/occupancy"
	"github.com/smartpark/occupancy-service/internal/scheduler"
	"github.com/smartpark/occupancy-service/internal/store"
	"github.com/smartpark/occupancy-service/internal/viewer"
)

// Handlers holds the HTTP handlers for the occupancy API.
type Handlers struct {
	occupancy *occupancy.Service
	tracker   *viewer.Tracker
	lots      store.LotStore
	spots     store.SpotStore
	clock     scheduler.Clock
	logger    *zap.Logger
}

// NewHandlers constructs the handler set. A nil clock defaults to the
// system clock.
func NewHandlers(
	occupancySvc *occupancy.Service,
	tracker *viewer.Tracker,
	lots store.LotStore,
	spots store.SpotStore,
	clock scheduler.Clock,
	logger *zap.Logger,
) *Handlers {
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	return &Handlers{
		occupancy: occupancySvc,
		tracker:   tracker,
		lots:      lots,
		spots:     spots,
		clock:     clock,
		logger:    logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type sensorUpdateResponse struct {
	Success bool `json:"success"`
}

type viewerCountResponse struct {
	LotID             int64 `json:"lotId"`
	ActiveViewerCount int   `json:"activeViewerCount"`
}

type spotResponse struct {
	SpotID   int64   `json:"spotId"`
	Row      int     `json:"row"`
	Column   int     `json:"column"`
	Occupied bool    `json:"occupied"`
	Label    *string `json:"label,omitempty"`
}

type lotDetailResponse struct {
	LotID         int64          `json:"lotId"`
	Name          string         `json:"name"`
	Capacity      int            `json:"capacity"`
	OccupiedCount int            `json:"occupiedCount"`
	Full          bool           `json:"full"`
	Spots         []spotResponse `json:"spots"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func lotIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "lotID"), 10, 64)
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SensorUpdate handles POST /sensor-updates in both wire forms: a raw
// comma-separated line (text/plain) or a structured JSON reading,
// single or batched. The outcome surfaces only as a success boolean;
// detail stays in the logs.
func (h *Handlers) SensorUpdate(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var ok bool
	if strings.HasPrefix(contentType, "application/json") {
		ok = h.applyStructured(r.Context(), body)
	} else {
		ok = h.occupancy.ApplyRaw(r.Context(), string(body))
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, sensorUpdateResponse{Success: ok})
}

func (h *Handlers) applyStructured(ctx context.Context, body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}

	// A batch is a JSON array of readings; anything else is a single
	// reading.
	if trimmed[0] == '[' {
		var readings []occupancy.Reading
		if err := json.Unmarshal(trimmed, &readings); err != nil {
			h.logger.Warn("rejected structured sensor batch", zap.Error(err))
			return false
		}
		return h.occupancy.ApplyBatch(ctx, readings)
	}

	var reading occupancy.Reading
	if err := json.Unmarshal(trimmed, &reading); err != nil {
		h.logger.Warn("rejected structured sensor reading", zap.Error(err))
		return false
	}
	return h.occupancy.ApplyReading(ctx, reading)
}

// TrackViewing handles POST /lots/{lotID}/viewings.
func (h *Handlers) TrackViewing(w http.ResponseWriter, r *http.Request) {
	lotID, err := lotIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lot id")
		return
	}

	var req struct {
		UserID int64 `json:"userId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	count, err := h.tracker.TrackViewing(r.Context(), req.UserID, lotID, h.clock.Now())
	if err != nil {
		h.logger.Error("failed to track viewing", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to track viewing")
		return
	}

	writeJSON(w, http.StatusOK, viewerCountResponse{LotID: lotID, ActiveViewerCount: count})
}

// ViewerCount handles GET /lots/{lotID}/viewings/count.
func (h *Handlers) ViewerCount(w http.ResponseWriter, r *http.Request) {
	lotID, err := lotIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lot id")
		return
	}

	count, err := h.tracker.ActiveCount(r.Context(), lotID, h.clock.Now())
	if err != nil {
		h.logger.Error("failed to count viewers", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to count viewers")
		return
	}

	writeJSON(w, http.StatusOK, viewerCountResponse{LotID: lotID, ActiveViewerCount: count})
}

// LotDetail handles GET /lots/{lotID}. When a userId query parameter
// is present the view is also recorded as an interest lease, since
// serving this page is exactly the "user is viewing the lot" event.
func (h *Handlers) LotDetail(w http.ResponseWriter, r *http.Request) {
	lotID, err := lotIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lot id")
		return
	}

	lot, err := h.lots.GetLot(r.Context(), lotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lot not found")
			return
		}
		h.logger.Error("failed to load lot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load lot")
		return
	}

	spots, err := h.spots.ListByLot(r.Context(), lotID)
	if err != nil {
		h.logger.Error("failed to list spots", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load lot")
		return
	}

	if userParam := r.URL.Query().Get("userId"); userParam != "" {
		if userID, err := strconv.ParseInt(userParam, 10, 64); err == nil {
			if _, err := h.tracker.TrackViewing(r.Context(), userID, lotID, h.clock.Now()); err != nil {
				// Viewing the lot still works if the lease write fails.
				h.logger.Warn("failed to record viewer lease", zap.Error(err))
			}
		}
	}

	resp := lotDetailResponse{
		LotID:    lot.ID,
		Name:     lot.Name,
		Capacity: lot.Capacity,
		Spots:    make([]spotResponse, 0, len(spots)),
	}
	for _, spot := range spots {
		if spot.Occupied {
			resp.OccupiedCount++
		}
		resp.Spots = append(resp.Spots, spotResponse{
			SpotID:   spot.ID,
			Row:      spot.Row,
			Column:   spot.Column,
			Occupied: spot.Occupied,
			Label:    spot.Label,
		})
	}
	resp.Full = resp.OccupiedCount >= lot.Capacity

	writeJSON(w, http.StatusOK, resp)
}
