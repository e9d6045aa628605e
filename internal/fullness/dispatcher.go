// Package fullness detects full lots and dispatches one batch
// notification to the users recently viewing them.
package fullness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartpark/occupancy-service/internal/db"
	"github.com/smartpark/occupancy-service/internal/logging"
	"github.com/smartpark/occupancy-service/internal/store"
)

// CheckInterval is how often every lot is checked for fullness.
const CheckInterval = time.Minute

// LotFullEvent is the batch notification published when a lot fills
// up. The downstream consumer checks each user's push preference
// before sending anything.
type LotFullEvent struct {
	LotID   int64   `json:"lotId"`
	LotName string  `json:"lotName"`
	UserIDs []int64 `json:"userIds"`
}

// NotificationPublisher is the outbound port to the message broker.
type NotificationPublisher interface {
	PublishLotFull(ctx context.Context, event LotFullEvent) error
}

// LeaseSource is the slice of the viewer tracker the dispatcher needs.
type LeaseSource interface {
	ActiveUnnotified(ctx context.Context, lotID int64, now time.Time) ([]db.ViewerLease, error)
	MarkNotified(ctx context.Context, leaseID uuid.UUID) error
}

// Dispatcher runs the fullness check.
type Dispatcher struct {
	lots      store.LotStore
	spots     store.SpotStore
	leases    LeaseSource
	publisher NotificationPublisher
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(
	lots store.LotStore,
	spots store.SpotStore,
	leases LeaseSource,
	publisher NotificationPublisher,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		lots:      lots,
		spots:     spots,
		leases:    leases,
		publisher: publisher,
		logger:    logger,
	}
}

// CheckAndNotify checks one lot. If the lot is full it publishes a
// single batch event for every active unnotified lease and marks those
// leases notified. A publish failure is logged and does not stop the
// marking: delivery is at-most-once per fullness episode, and a user
// only becomes eligible again by renewing their lease with a fresh
// view.
func (d *Dispatcher) CheckAndNotify(ctx context.Context, lotID int64, now time.Time) error {
	logger := logging.WithLot(d.logger, lotID)

	lot, err := d.lots.GetLot(ctx, lotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("fullness check skipped unknown lot")
			return nil
		}
		return fmt.Errorf("failed to load lot %d: %w", lotID, err)
	}

	occupied, err := d.spots.CountOccupied(ctx, lotID)
	if err != nil {
		return fmt.Errorf("failed to count occupied spots for lot %d: %w", lotID, err)
	}
	if occupied < lot.Capacity {
		return nil
	}

	leases, err := d.leases.ActiveUnnotified(ctx, lotID, now)
	if err != nil {
		return fmt.Errorf("failed to gather leases for lot %d: %w", lotID, err)
	}
	if len(leases) == 0 {
		return nil
	}

	userIDs := make([]int64, len(leases))
	for i, lease := range leases {
		userIDs[i] = lease.UserID
	}

	event := LotFullEvent{LotID: lot.ID, LotName: lot.Name, UserIDs: userIDs}
	if err := d.publisher.PublishLotFull(ctx, event); err != nil {
		logger.Error("failed to publish lot-full notification",
			zap.Int("user_count", len(userIDs)),
			zap.Error(err))
	} else {
		logger.Info("published lot-full notification",
			zap.String("lot_name", lot.Name),
			zap.Int("user_count", len(userIDs)))
	}

	for _, lease := range leases {
		if err := d.leases.MarkNotified(ctx, lease.ID); err != nil {
			logger.Error("failed to mark lease notified",
				zap.String("lease_id", lease.ID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// RunAll checks every known lot, isolating failures per lot so one bad
// lot never starves the rest of the tick.
func (d *Dispatcher) RunAll(ctx context.Context, now time.Time) error {
	lotIDs, err := d.lots.ListLotIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list lots: %w", err)
	}
	for _, lotID := range lotIDs {
		if err := d.CheckAndNotify(ctx, lotID, now); err != nil {
			d.logger.Error("fullness check failed for lot",
				zap.Int64("lot_id", lotID),
				zap.Error(err))
		}
	}
	return nil
}
