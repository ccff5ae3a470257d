package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrityEvent is one environment signal recorded against an
// attempt: suppressed tamper attempts and honored violations alike.
type IntegrityEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	UserID     int       `json:"user_id"`
	Signal     string    `json:"signal"`
	Kind       string    `json:"kind,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IntegrityEventRepository handles the append-only integrity event log.
type IntegrityEventRepository struct {
	pool *pgxpool.Pool
}

// NewIntegrityEventRepository creates a new IntegrityEventRepository.
func NewIntegrityEventRepository(pool *pgxpool.Pool) *IntegrityEventRepository {
	return &IntegrityEventRepository{pool: pool}
}

// BulkInsert writes a batch of events via COPY.
func (r *IntegrityEventRepository) BulkInsert(ctx context.Context, events []*IntegrityEvent) error {
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{
			e.SessionID, e.UserID, e.Signal, e.Kind, e.RecordedAt,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"integrity_events"},
		[]string{"session_id", "user_id", "signal", "kind", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// ListBySession returns the recorded events for one attempt, oldest
// first.
func (r *IntegrityEventRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]IntegrityEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, user_id, signal, kind, recorded_at
		 FROM integrity_events
		 WHERE session_id = $1
		 ORDER BY recorded_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []IntegrityEvent
	for rows.Next() {
		var e IntegrityEvent
		if err := rows.Scan(&e.SessionID, &e.UserID, &e.Signal, &e.Kind, &e.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Insert writes a single event, the row-by-row fallback path.
func (r *IntegrityEventRepository) Insert(ctx context.Context, e *IntegrityEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO integrity_events (session_id, user_id, signal, kind, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.SessionID, e.UserID, e.Signal, e.Kind, e.RecordedAt,
	)
	return err
}
