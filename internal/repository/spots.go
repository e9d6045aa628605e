package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/smartpark/occupancy-service/internal/db"
	"github.com/smartpark/occupancy-service/internal/store"
)

// UpdateOccupancyBySensor flips the occupied flag of the spot carrying
// the sensor id. The single UPDATE makes the lookup and write atomic;
// a concurrent reading for the same sensor cannot interleave between
// them.
func (r *Repository) UpdateOccupancyBySensor(ctx context.Context, sensorID string, occupied bool) (*db.ParkingSpot, error) {
	query := `
		UPDATE parking_spots
		SET occupied = $2
		WHERE sensor_id = $1
		RETURNING id, lot_id, row, col, occupied, sensor_id, label
	`

	var spot db.ParkingSpot
	err := r.pool.QueryRow(ctx, query, sensorID, occupied).Scan(
		&spot.ID,
		&spot.LotID,
		&spot.Row,
		&spot.Column,
		&spot.Occupied,
		&spot.SensorID,
		&spot.Label,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update spot occupancy: %w", err)
	}
	return &spot, nil
}

// CountOccupied returns the number of occupied spots in a lot.
func (r *Repository) CountOccupied(ctx context.Context, lotID int64) (int, error) {
	query := `
		SELECT count(*)
		FROM parking_spots
		WHERE lot_id = $1 AND occupied
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, lotID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count occupied spots: %w", err)
	}
	return count, nil
}

// ListByLot returns every spot belonging to a lot.
func (r *Repository) ListByLot(ctx context.Context, lotID int64) ([]db.ParkingSpot, error) {
	query := `
		SELECT id, lot_id, row, col, occupied, sensor_id, label
		FROM parking_spots
		WHERE lot_id = $1
		ORDER BY row, col
	`

	rows, err := r.pool.Query(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query spots: %w", err)
	}
	defer rows.Close()

	var spots []db.ParkingSpot
	for rows.Next() {
		var spot db.ParkingSpot
		if err := rows.Scan(
			&spot.ID,
			&spot.LotID,
			&spot.Row,
			&spot.Column,
			&spot.Occupied,
			&spot.SensorID,
			&spot.Label,
		); err != nil {
			return nil, fmt.Errorf("failed to scan spot: %w", err)
		}
		spots = append(spots, spot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return spots, nil
}
