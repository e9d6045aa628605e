package occupancy

import (
	"context"

	"go.uber.org/zap"

	"github.com/smartpark/occupancy-service/internal/realtime"
	"github.com/smartpark/occupancy-service/internal/sensor"
	"github.com/smartpark/occupancy-service/internal/store"
)

// Service applies sensor readings to spot state. Failures are logged
// and surfaced to callers only as a boolean; transport adapters that
// need detail inspect the logs.
type Service struct {
	spots       store.SpotStore
	broadcaster realtime.Broadcaster
	logger      *zap.Logger
}

// NewService creates an occupancy service.
func NewService(spots store.SpotStore, broadcaster realtime.Broadcaster, logger *zap.Logger) *Service {
	return &Service{
		spots:       spots,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ApplyReading derives the reading's sensor id, persists the occupancy
// flip on the matching spot and broadcasts the change on the lot-spots
// topic. Returns true on success, false when the spot lookup or write
// failed.
func (s *Service) ApplyReading(ctx context.Context, reading Reading) bool {
	sensorID := sensor.Resolve(reading.LotID, reading.ControllerID, reading.EchoPin, reading.TrigPin)

	spot, err := s.spots.UpdateOccupancyBySensor(ctx, sensorID, reading.Occupied)
	if err != nil {
		s.logger.Warn("failed to apply sensor reading",
			zap.String("sensor_id", sensorID),
			zap.String("lot_id", reading.LotID),
			zap.Bool("occupied", reading.Occupied),
			zap.Error(err))
		return false
	}

	s.broadcaster.Publish(realtime.TopicLotSpots, realtime.SpotOccupancyChanged{
		SpotID:   spot.ID,
		Occupied: spot.Occupied,
	})

	s.logger.Info("spot occupancy updated",
		zap.Int64("spot_id", spot.ID),
		zap.Int64("lot_id", spot.LotID),
		zap.String("sensor_id", sensorID),
		zap.Bool("occupied", spot.Occupied))
	return true
}

// ApplyRaw parses a raw sensor line and applies it. A malformed line
// is rejected before any spot is touched or broadcast fired.
func (s *Service) ApplyRaw(ctx context.Context, line string) bool {
	reading, err := ParseRaw(line)
	if err != nil {
		s.logger.Warn("rejected raw sensor line", zap.Error(err))
		return false
	}
	return s.ApplyReading(ctx, reading)
}

// ApplyBatch applies several readings and broadcasts the changes that
// succeeded as one list payload. Returns true only when every reading
// applied.
func (s *Service) ApplyBatch(ctx context.Context, readings []Reading) bool {
	ok := true
	var changes []realtime.SpotOccupancyChanged
	for _, reading := range readings {
		sensorID := sensor.Resolve(reading.LotID, reading.ControllerID, reading.EchoPin, reading.TrigPin)
		spot, err := s.spots.UpdateOccupancyBySensor(ctx, sensorID, reading.Occupied)
		if err != nil {
			s.logger.Warn("failed to apply sensor reading in batch",
				zap.String("sensor_id", sensorID),
				zap.Error(err))
			ok = false
			continue
		}
		changes = append(changes, realtime.SpotOccupancyChanged{
			SpotID:   spot.ID,
			Occupied: spot.Occupied,
		})
	}
	if len(changes) > 0 {
		s.broadcaster.Publish(realtime.TopicLotSpots, changes)
	}
	return ok
}
