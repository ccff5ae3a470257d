package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
)

// AvailabilityRepository handles the per-user, per-level availability
// ledger. Rows are created on first attempt and updated after every
// terminal outcome; they are never deleted.
type AvailabilityRepository struct {
	pool *pgxpool.Pool
}

// NewAvailabilityRepository creates a new AvailabilityRepository.
func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

// ListByUser retrieves all ledger rows for a user.
func (r *AvailabilityRepository) ListByUser(ctx context.Context, userID int) ([]model.AvailabilityRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, level, last_attempt_at, last_score, outcome, next_available_at
		 FROM availability
		 WHERE user_id = $1`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AvailabilityRecord
	for rows.Next() {
		var rec model.AvailabilityRecord
		if err := rows.Scan(&rec.UserID, &rec.Level, &rec.LastAttemptAt,
			&rec.LastScore, &rec.Outcome, &rec.NextAvailableAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Upsert writes a ledger row. The values are derived deterministically
// from the attempt's terminal row, so replaying an upsert after a
// crash cannot double-penalize.
func (r *AvailabilityRepository) Upsert(ctx context.Context, rec *model.AvailabilityRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO availability
		   (user_id, level, last_attempt_at, last_score, outcome, next_available_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, level) DO UPDATE
		 SET last_attempt_at = EXCLUDED.last_attempt_at,
		     last_score = EXCLUDED.last_score,
		     outcome = EXCLUDED.outcome,
		     next_available_at = EXCLUDED.next_available_at`,
		rec.UserID, rec.Level, rec.LastAttemptAt, rec.LastScore,
		rec.Outcome, rec.NextAvailableAt,
	)
	return err
}
