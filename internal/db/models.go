package db

import (
	"time"

	"github.com/google/uuid"
)

// ParkingLot is the read-only lot context for the occupancy pipeline.
// Spots reference their lot by id only; the lot never holds live spot
// pointers.
type ParkingLot struct {
	ID       int64
	Name     string
	Capacity int
}

// ParkingSpot is a single parking spot owned by a lot.
type ParkingSpot struct {
	ID       int64
	LotID    int64
	Row      int
	Column   int
	Occupied bool
	SensorID *string
	Label    *string
}

// ViewerLease records that a user was recently viewing a lot. A lease
// is unique per (UserID, LotID); re-viewing renews the existing lease
// instead of creating a second one.
type ViewerLease struct {
	ID        uuid.UUID
	UserID    int64
	LotID     int64
	StartedAt time.Time
	ExpiresAt time.Time
	Notified  bool
}

// Active reports whether the lease has not yet expired at the given
// instant. A lease expiring exactly at now is no longer active.
func (l ViewerLease) Active(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
