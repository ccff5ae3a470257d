package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
)

// AttemptRow is the persisted terminal record of one attempt.
type AttemptRow struct {
	SessionID     uuid.UUID            `json:"session_id"`
	AssessmentID  uuid.UUID            `json:"assessment_id"`
	UserID        int                  `json:"user_id"`
	Level         model.Level          `json:"level"`
	Score         int                  `json:"score"`
	Passed        bool                 `json:"passed"`
	OutcomeKind   model.OutcomeKind    `json:"outcome_kind"`
	ViolationKind *model.ViolationKind `json:"violation_kind,omitempty"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`
}

// AttemptSummary is a learner result row for the admin listing.
type AttemptSummary struct {
	SessionID     uuid.UUID            `json:"session_id"`
	UserID        int                  `json:"user_id"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	Score         int                  `json:"score"`
	Passed        bool                 `json:"passed"`
	OutcomeKind   model.OutcomeKind    `json:"outcome_kind"`
	ViolationKind *model.ViolationKind `json:"violation_kind,omitempty"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`
}

// AttemptRepository handles terminal attempt data access. Rows are
// written once per session id and never updated; the conflict target
// on session_id is what makes finalization idempotent.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// InsertFinalized writes the terminal row for a session. Returns false
// without error when the session was already finalized, so the caller
// can read back the original result instead of re-scoring.
func (r *AttemptRepository) InsertFinalized(ctx context.Context, row *AttemptRow) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO attempts
		   (session_id, assessment_id, user_id, level, score, passed,
		    outcome_kind, violation_kind, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO NOTHING`,
		row.SessionID, row.AssessmentID, row.UserID, row.Level,
		row.Score, row.Passed, row.OutcomeKind, row.ViolationKind,
		row.StartedAt, row.FinishedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetBySessionID retrieves the terminal row for a session.
func (r *AttemptRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*AttemptRow, error) {
	row := &AttemptRow{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, assessment_id, user_id, level, score, passed,
		        outcome_kind, violation_kind, started_at, finished_at
		 FROM attempts WHERE session_id = $1`, sessionID,
	).Scan(&row.SessionID, &row.AssessmentID, &row.UserID, &row.Level,
		&row.Score, &row.Passed, &row.OutcomeKind, &row.ViolationKind,
		&row.StartedAt, &row.FinishedAt)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// ListByAssessment retrieves paginated attempt results for one
// assessment, newest first, with an optional passed filter.
func (r *AttemptRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID, page, perPage int, passed *bool) ([]AttemptSummary, int64, error) {
	offset := (page - 1) * perPage

	baseQuery := `
		FROM attempts a
		JOIN users u ON a.user_id = u.id
		WHERE a.assessment_id = $1
	`
	args := []any{assessmentID}

	if passed != nil {
		args = append(args, *passed)
		baseQuery += fmt.Sprintf(" AND a.passed = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT a.session_id, a.user_id, u.name, u.email, a.score, a.passed,
		       a.outcome_kind, a.violation_kind, a.started_at, a.finished_at
		` + baseQuery + `
		ORDER BY a.finished_at DESC
		LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptSummary
	for rows.Next() {
		var s AttemptSummary
		if err := rows.Scan(&s.SessionID, &s.UserID, &s.Name, &s.Email,
			&s.Score, &s.Passed, &s.OutcomeKind, &s.ViolationKind,
			&s.StartedAt, &s.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, s)
	}

	return results, total, rows.Err()
}
