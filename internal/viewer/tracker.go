// Package viewer tracks time-bounded viewer interest in parking lots.
// A lease marks a user as recently viewing a lot; it is renewed on
// every view and swept once its window passes, independent of any
// request completing.
package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartpark/occupancy-service/internal/db"
	"github.com/smartpark/occupancy-service/internal/store"
)

// LeaseTTL is the fixed interest window. Not configurable.
const LeaseTTL = 45 * time.Minute

// SweepInterval is how often expired leases are removed.
const SweepInterval = 10 * time.Minute

// Tracker manages viewer leases on top of a LeaseStore.
type Tracker struct {
	leases store.LeaseStore
	logger *zap.Logger
}

// NewTracker creates a tracker.
func NewTracker(leases store.LeaseStore, logger *zap.Logger) *Tracker {
	return &Tracker{leases: leases, logger: logger}
}

// TrackViewing records that the user is viewing the lot at now,
// renewing any existing lease for the pair: the timer restarts and the
// notified flag resets. Returns the lot's active viewer count read
// immediately after the write, so it includes the just-written lease.
func (t *Tracker) TrackViewing(ctx context.Context, userID, lotID int64, now time.Time) (int, error) {
	lease := db.ViewerLease{
		ID:        uuid.New(),
		UserID:    userID,
		LotID:     lotID,
		StartedAt: now,
		ExpiresAt: now.Add(LeaseTTL),
		Notified:  false,
	}
	if err := t.leases.UpsertLease(ctx, lease); err != nil {
		return 0, fmt.Errorf("failed to upsert viewer lease: %w", err)
	}

	count, err := t.leases.CountActive(ctx, lotID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to count active viewers: %w", err)
	}
	return count, nil
}

// ActiveCount returns how many leases for the lot are still active at
// now.
func (t *Tracker) ActiveCount(ctx context.Context, lotID int64, now time.Time) (int, error) {
	count, err := t.leases.CountActive(ctx, lotID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to count active viewers: %w", err)
	}
	return count, nil
}

// SweepExpired removes every lease whose window has passed at now. A
// lease expiring exactly at now is expired. Re-running with the same
// now is a no-op after the first pass.
func (t *Tracker) SweepExpired(ctx context.Context, now time.Time) error {
	removed, err := t.leases.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to sweep expired leases: %w", err)
	}
	if removed > 0 {
		t.logger.Info("swept expired viewer leases", zap.Int64("removed", removed))
	}
	return nil
}

// ActiveUnnotified returns the lot's active leases that have not yet
// been notified.
func (t *Tracker) ActiveUnnotified(ctx context.Context, lotID int64, now time.Time) ([]db.ViewerLease, error) {
	leases, err := t.leases.ActiveUnnotified(ctx, lotID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load unnotified leases: %w", err)
	}
	return leases, nil
}

// MarkNotified flags the lease as notified. A lease that no longer
// exists was swept concurrently; that is success, not an error.
func (t *Tracker) MarkNotified(ctx context.Context, leaseID uuid.UUID) error {
	if err := t.leases.MarkNotified(ctx, leaseID); err != nil {
		return fmt.Errorf("failed to mark lease notified: %w", err)
	}
	return nil
}
