// Package memory holds an in-memory implementation of the store ports.
// It backs the package tests and mirrors the semantics the pgx
// repository implements with SQL.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartpark/occupancy-service/internal/db"
	"github.com/smartpark/occupancy-service/internal/store"
)

type leaseKey struct {
	userID int64
	lotID  int64
}

// Store is a mutex-guarded in-memory store implementing LotStore,
// SpotStore and LeaseStore.
type Store struct {
	mu     sync.RWMutex
	lots   map[int64]db.ParkingLot
	spots  map[int64]db.ParkingSpot
	leases map[leaseKey]db.ViewerLease
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		lots:   make(map[int64]db.ParkingLot),
		spots:  make(map[int64]db.ParkingSpot),
		leases: make(map[leaseKey]db.ViewerLease),
	}
}

// AddLot seeds a lot.
func (s *Store) AddLot(lot db.ParkingLot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[lot.ID] = lot
}

// AddSpot seeds a spot.
func (s *Store) AddSpot(spot db.ParkingSpot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spots[spot.ID] = spot
}

// GetSpot returns a copy of a spot, for test assertions.
func (s *Store) GetSpot(spotID int64) (db.ParkingSpot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spot, ok := s.spots[spotID]
	return spot, ok
}

// GetLease returns a copy of the lease for (userID, lotID), for test
// assertions.
func (s *Store) GetLease(userID, lotID int64) (db.ViewerLease, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lease, ok := s.leases[leaseKey{userID, lotID}]
	return lease, ok
}

func (s *Store) GetLot(ctx context.Context, lotID int64) (*db.ParkingLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &lot, nil
}

func (s *Store) ListLotIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.lots))
	for id := range s.lots {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) UpdateOccupancyBySensor(ctx context.Context, sensorID string, occupied bool) (*db.ParkingSpot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, spot := range s.spots {
		if spot.SensorID != nil && *spot.SensorID == sensorID {
			spot.Occupied = occupied
			s.spots[id] = spot
			return &spot, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CountOccupied(ctx context.Context, lotID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, spot := range s.spots {
		if spot.LotID == lotID && spot.Occupied {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListByLot(ctx context.Context, lotID int64) ([]db.ParkingSpot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var spots []db.ParkingSpot
	for _, spot := range s.spots {
		if spot.LotID == lotID {
			spots = append(spots, spot)
		}
	}
	return spots, nil
}

func (s *Store) UpsertLease(ctx context.Context, lease db.ViewerLease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := leaseKey{lease.UserID, lease.LotID}
	if existing, ok := s.leases[key]; ok {
		existing.StartedAt = lease.StartedAt
		existing.ExpiresAt = lease.ExpiresAt
		existing.Notified = false
		s.leases[key] = existing
		return nil
	}
	s.leases[key] = lease
	return nil
}

func (s *Store) CountActive(ctx context.Context, lotID int64, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, lease := range s.leases {
		if lease.LotID == lotID && lease.Active(now) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ActiveUnnotified(ctx context.Context, lotID int64, now time.Time) ([]db.ViewerLease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var leases []db.ViewerLease
	for _, lease := range s.leases {
		if lease.LotID == lotID && lease.Active(now) && !lease.Notified {
			leases = append(leases, lease)
		}
	}
	return leases, nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, lease := range s.leases {
		if !lease.Active(now) {
			delete(s.leases, key)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) MarkNotified(ctx context.Context, leaseID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, lease := range s.leases {
		if lease.ID == leaseID {
			lease.Notified = true
			s.leases[key] = lease
			return nil
		}
	}
	// Lease already swept; treated as success.
	return nil
}
