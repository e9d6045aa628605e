// Package repository binds the store ports to PostgreSQL via pgx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartpark/occupancy-service/internal/db"
	"github.com/smartpark/occupancy-service/internal/store"
)

// Repository implements store.LotStore, store.SpotStore and
// store.LeaseStore against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetLot loads a lot by id.
func (r *Repository) GetLot(ctx context.Context, lotID int64) (*db.ParkingLot, error) {
	query := `
		SELECT id, name, capacity
		FROM parking_lots
		WHERE id = $1
	`

	var lot db.ParkingLot
	err := r.pool.QueryRow(ctx, query, lotID).Scan(&lot.ID, &lot.Name, &lot.Capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lot: %w", err)
	}
	return &lot, nil
}

// ListLotIDs returns the ids of every known lot.
func (r *Repository) ListLotIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM parking_lots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return ids, nil
}
