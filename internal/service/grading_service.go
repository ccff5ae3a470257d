package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/ledionnezirii/germanmaster-sub001/internal/clock"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/repository"
	"github.com/rs/zerolog"
)

// GradingService validates answers, computes score and pass/fail, and
// updates the availability ledger. Finalize is idempotent per session
// id: a resubmission returns the original result without re-scoring or
// a second ledger update.
type GradingService struct {
	cfg          *config.Config
	clk          clock.Clock
	assessments  *AssessmentService
	attempts     *repository.AttemptRepository
	availability *repository.AvailabilityRepository
	users        *repository.UserRepository
	log          zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(
	cfg *config.Config,
	clk clock.Clock,
	assessments *AssessmentService,
	attempts *repository.AttemptRepository,
	availability *repository.AvailabilityRepository,
	users *repository.UserRepository,
	log zerolog.Logger,
) *GradingService {
	return &GradingService{
		cfg:          cfg,
		clk:          clk,
		assessments:  assessments,
		attempts:     attempts,
		availability: availability,
		users:        users,
		log:          log.With().Str("component", "grading_service").Logger(),
	}
}

// Finalize grades a submission and records the terminal outcome.
// Implements the engine's Grader.
func (s *GradingService) Finalize(ctx context.Context, sub *model.GradingSubmission) (*model.AttemptResult, error) {
	def, err := s.assessments.Definition(ctx, sub.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}

	score := Score(def, sub.Answers)
	threshold := def.PassingThreshold
	if threshold <= 0 {
		threshold = s.cfg.PassingScore
	}

	// A forced failure can never pass; the score is informational only.
	passed := sub.Kind != model.OutcomeForceFailure && score >= threshold

	row := &repository.AttemptRow{
		SessionID:    sub.SessionID,
		AssessmentID: sub.AssessmentID,
		UserID:       sub.UserID,
		Level:        def.Level,
		Score:        score,
		Passed:       passed,
		OutcomeKind:  sub.Kind,
		StartedAt:    sub.StartedAt,
		FinishedAt:   s.clk.Now(),
	}
	if sub.ViolationKind != "" {
		vk := sub.ViolationKind
		row.ViolationKind = &vk
	}

	inserted, err := s.attempts.InsertFinalized(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("persist attempt: %w", err)
	}
	if !inserted {
		// Already finalized: return the original result. The ledger
		// upsert below is replayed with values derived from the stored
		// row, so a crash between insert and upsert cannot lose the
		// lockout.
		original, err := s.attempts.GetBySessionID(ctx, sub.SessionID)
		if err != nil {
			return nil, fmt.Errorf("read original result: %w", err)
		}
		row = original
	}

	rec := s.ledgerRecord(row)
	if err := s.availability.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("update availability: %w", err)
	}

	xp := 0
	if row.Passed {
		xp = passXP(row.Score)
		if inserted {
			if err := s.users.AddXP(ctx, row.UserID, xp); err != nil {
				s.log.Warn().Err(err).Int("user_id", row.UserID).Msg("XP award failed")
			}
		}
	}

	result := &model.AttemptResult{
		SessionID:    row.SessionID,
		AssessmentID: row.AssessmentID,
		UserID:       row.UserID,
		Score:        row.Score,
		Passed:       row.Passed,
		OutcomeKind:  row.OutcomeKind,
		XPAwarded:    xp,
		FinishedAt:   row.FinishedAt,
		Availability: rec,
	}
	if row.ViolationKind != nil {
		result.ViolationKind = *row.ViolationKind
	}
	return result, nil
}

// ledgerRecord derives the availability row from a terminal attempt
// row. Deterministic: cooldowns are anchored to the attempt's finish
// time, not the wall clock, so replays write identical values.
func (s *GradingService) ledgerRecord(row *repository.AttemptRow) *model.AvailabilityRecord {
	lastAttempt := row.FinishedAt
	lastScore := row.Score

	rec := &model.AvailabilityRecord{
		UserID:        row.UserID,
		Level:         row.Level,
		LastAttemptAt: &lastAttempt,
		LastScore:     &lastScore,
	}

	switch {
	case row.Passed:
		rec.Outcome = model.OutcomePassed
	case row.OutcomeKind == model.OutcomeForceFailure:
		rec.Outcome = model.OutcomeViolationCooldown
	default:
		rec.Outcome = model.OutcomeFailedCooldown
	}

	if rec.Outcome != model.OutcomePassed {
		next := row.FinishedAt.Add(s.cfg.Cooldown)
		rec.NextAvailableAt = &next
	}
	return rec
}

// Score compares every submitted answer against its question and
// returns the rounded percentage of correct answers. Partial credit:
// unanswered questions simply score zero.
func Score(def *model.AssessmentDefinition, answers map[uuid.UUID]model.Answer) int {
	total := len(def.Questions)
	if total == 0 {
		return 0
	}

	correct := 0
	for i := range def.Questions {
		q := &def.Questions[i]
		if ans, ok := answers[q.ID]; ok && ans.Matches(q) {
			correct++
		}
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// passXP converts a passing score into experience points.
func passXP(score int) int {
	return score
}
