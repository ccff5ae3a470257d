package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ledionnezirii/germanmaster-sub001/internal/clock"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/repository"
)

// AvailabilityService computes the per-level availability view for a
// user: ledger rows overlaid with progression locks. Progression is
// derived at read time from the previous level's outcome, so passing
// a level needs no unlock write.
type AvailabilityService struct {
	repo *repository.AvailabilityRepository
	clk  clock.Clock
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(repo *repository.AvailabilityRepository, clk clock.Clock) *AvailabilityService {
	return &AvailabilityService{repo: repo, clk: clk}
}

// Now exposes the service clock so callers evaluate records against
// the same instant the service does.
func (s *AvailabilityService) Now() time.Time {
	return s.clk.Now()
}

// GetAvailability returns a record for every level in the chain. Levels
// without a ledger row report never_attempted; levels whose
// prerequisite is not passed report progression_locked regardless of
// any cooldown state.
func (s *AvailabilityService) GetAvailability(ctx context.Context, userID int) (map[model.Level]*model.AvailabilityRecord, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return OverlayProgression(userID, rows), nil
}

// OverlayProgression fills the ledger rows out to the full level chain
// and applies progression locks on top of whatever cooldown state a
// row already carries.
func OverlayProgression(userID int, rows []model.AvailabilityRecord) map[model.Level]*model.AvailabilityRecord {
	byLevel := make(map[model.Level]*model.AvailabilityRecord, len(model.LevelChain))
	for i := range rows {
		rec := rows[i]
		byLevel[rec.Level] = &rec
	}

	result := make(map[model.Level]*model.AvailabilityRecord, len(model.LevelChain))
	for _, level := range model.LevelChain {
		rec, ok := byLevel[level]
		if !ok {
			rec = &model.AvailabilityRecord{
				UserID:  userID,
				Level:   level,
				Outcome: model.OutcomeNeverAttempted,
			}
		}

		if prev := level.Previous(); prev != "" {
			prevRec, attempted := byLevel[prev]
			if !attempted || prevRec.Outcome != model.OutcomePassed {
				locked := *rec
				locked.Outcome = model.OutcomeProgressionLocked
				requires := prev
				locked.RequiresLevel = &requires
				rec = &locked
			}
		}

		result[level] = rec
	}

	return result
}

// Available reports whether the user may start the level right now.
// Implements the engine's AvailabilityChecker.
func (s *AvailabilityService) Available(ctx context.Context, userID int, level model.Level) (bool, error) {
	records, err := s.GetAvailability(ctx, userID)
	if err != nil {
		return false, err
	}
	rec, ok := records[level]
	if !ok {
		return false, nil
	}
	return rec.Available(s.clk.Now()), nil
}
