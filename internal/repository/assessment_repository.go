package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
)

// AssessmentRepository handles assessment definition data access.
// Definitions are authored by content tooling and read-only here.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// GetByID retrieves a full definition, questions included, ordered by
// ordinal. Correct values stay server-side.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentDefinition, error) {
	d := &model.AssessmentDefinition{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, level, title, time_budget_seconds, passing_threshold, created_at
		 FROM assessments WHERE id = $1`, id,
	).Scan(&d.ID, &d.Level, &d.Title, &d.TimeBudgetSecs, &d.PassingThreshold, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	questions, err := r.questionsFor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	d.Questions = questions
	return d, nil
}

// GetByLevel retrieves the definition for a level.
func (r *AssessmentRepository) GetByLevel(ctx context.Context, level model.Level) (*model.AssessmentDefinition, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM assessments WHERE level = $1`, level,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// ListIDs returns the ids of all definitions, for cache prewarming.
func (r *AssessmentRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM assessments ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *AssessmentRepository) questionsFor(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, assessment_id, ordinal, prompt, type, options, correct_values
		 FROM questions
		 WHERE assessment_id = $1
		 ORDER BY ordinal ASC`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.Ordinal, &q.Prompt, &q.Type, &q.Options, &q.CorrectValues); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
