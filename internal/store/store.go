// Package store defines the persistence ports used by the occupancy
// pipeline. Production code binds them to the pgx-backed repository;
// tests bind them to the in-memory implementation in store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/smartpark/occupancy-service/internal/db"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// LotStore exposes the read-only lot context needed by full-detection.
type LotStore interface {
	// GetLot loads a lot by id. Returns ErrNotFound when the lot does
	// not exist.
	GetLot(ctx context.Context, lotID int64) (*db.ParkingLot, error)

	// ListLotIDs returns the ids of every known lot.
	ListLotIDs(ctx context.Context) ([]int64, error)
}

// SpotStore persists parking spots and their occupancy state.
type SpotStore interface {
	// UpdateOccupancyBySensor sets the occupied flag of the spot
	// carrying the given sensor id and returns the updated spot. The
	// lookup and write happen atomically. Returns ErrNotFound when no
	// spot carries the sensor id.
	UpdateOccupancyBySensor(ctx context.Context, sensorID string, occupied bool) (*db.ParkingSpot, error)

	// CountOccupied returns the number of occupied spots in a lot.
	CountOccupied(ctx context.Context, lotID int64) (int, error)

	// ListByLot returns every spot belonging to a lot.
	ListByLot(ctx context.Context, lotID int64) ([]db.ParkingSpot, error)
}

// LeaseStore persists viewer interest leases.
type LeaseStore interface {
	// UpsertLease inserts the lease, or, when a lease for the same
	// (UserID, LotID) pair already exists, renews it in place with the
	// given StartedAt/ExpiresAt and resets Notified to false. The
	// existence check and the write happen atomically.
	UpsertLease(ctx context.Context, lease db.ViewerLease) error

	// CountActive returns the number of leases for the lot with
	// ExpiresAt strictly after now.
	CountActive(ctx context.Context, lotID int64, now time.Time) (int, error)

	// ActiveUnnotified returns the leases for the lot with ExpiresAt
	// strictly after now and Notified false.
	ActiveUnnotified(ctx context.Context, lotID int64, now time.Time) ([]db.ViewerLease, error)

	// DeleteExpired removes every lease with ExpiresAt at or before
	// now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// MarkNotified sets Notified on the lease with the given id. A
	// missing lease (already swept) is treated as success.
	MarkNotified(ctx context.Context, leaseID uuid.UUID) error
}
