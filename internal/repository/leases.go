package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartpark/occupancy-service/internal/db"
)

// UpsertLease inserts or renews the lease for (user_id, lot_id). The
// ON CONFLICT clause makes the existence check and the write one
// atomic statement, so two concurrent views of the same lot by the
// same user cannot produce duplicate rows or a lost renewal.
func (r *Repository) UpsertLease(ctx context.Context, lease db.ViewerLease) error {
	query := `
		INSERT INTO viewer_leases (id, user_id, lot_id, started_at, expires_at, notified)
		VALUES ($1, $2, $3, $4, $5, false)
		ON CONFLICT (user_id, lot_id) DO UPDATE
		SET started_at = EXCLUDED.started_at,
		    expires_at = EXCLUDED.expires_at,
		    notified   = false
	`

	_, err := r.pool.Exec(ctx, query,
		lease.ID,
		lease.UserID,
		lease.LotID,
		lease.StartedAt,
		lease.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert viewer lease: %w", err)
	}
	return nil
}

// CountActive counts the lot's leases expiring strictly after now.
func (r *Repository) CountActive(ctx context.Context, lotID int64, now time.Time) (int, error) {
	query := `
		SELECT count(*)
		FROM viewer_leases
		WHERE lot_id = $1 AND expires_at > $2
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, lotID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active leases: %w", err)
	}
	return count, nil
}

// ActiveUnnotified returns the lot's active leases not yet notified.
func (r *Repository) ActiveUnnotified(ctx context.Context, lotID int64, now time.Time) ([]db.ViewerLease, error) {
	query := `
		SELECT id, user_id, lot_id, started_at, expires_at, notified
		FROM viewer_leases
		WHERE lot_id = $1 AND expires_at > $2 AND NOT notified
	`

	rows, err := r.pool.Query(ctx, query, lotID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query unnotified leases: %w", err)
	}
	defer rows.Close()

	var leases []db.ViewerLease
	for rows.Next() {
		var lease db.ViewerLease
		if err := rows.Scan(
			&lease.ID,
			&lease.UserID,
			&lease.LotID,
			&lease.StartedAt,
			&lease.ExpiresAt,
			&lease.Notified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lease: %w", err)
		}
		leases = append(leases, lease)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return leases, nil
}

// DeleteExpired removes leases with expires_at at or before now.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM viewer_leases WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired leases: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkNotified flags a lease as notified. Updating zero rows means the
// lease was swept concurrently, which is fine.
func (r *Repository) MarkNotified(ctx context.Context, leaseID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE viewer_leases SET notified = true WHERE id = $1`, leaseID)
	if err != nil {
		return fmt.Errorf("failed to mark lease notified: %w", err)
	}
	return nil
}
