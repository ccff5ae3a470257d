package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/ledionnezirii/germanmaster-sub001/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AssessmentService serves assessment definitions and learner payloads.
// Learner payloads are cached in Redis so test starts never thunder
// onto PostgreSQL; full definitions (with correct values) are always
// read from the source of truth.
type AssessmentService struct {
	repo *repository.AssessmentRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(repo *repository.AssessmentRepository, rdb *redis.Client, log zerolog.Logger) *AssessmentService {
	return &AssessmentService{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "assessment_service").Logger(),
	}
}

// Definition loads the full definition from PostgreSQL. Implements the
// engine's DefinitionSource.
func (s *AssessmentService) Definition(ctx context.Context, assessmentID uuid.UUID) (*model.AssessmentDefinition, error) {
	return s.repo.GetByID(ctx, assessmentID)
}

// GetPayload returns the learner-facing payload (no correct answers),
// Redis-first with a PostgreSQL fallback that self-heals the cache.
func (s *AssessmentService) GetPayload(ctx context.Context, assessmentID uuid.UUID) (*model.AssessmentPayload, error) {
	key := config.CacheKey.AssessmentPayloadKey(assessmentID.String())

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var payload model.AssessmentPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			return &payload, nil
		}
		// Corrupt cache entry: fall through to the DB and rewrite it.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read payload cache: %w", err)
	}

	def, err := s.repo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}

	payload := def.ForLearner()
	if err := s.cachePayload(ctx, payload); err != nil {
		s.log.Warn().Err(err).Str("assessment_id", assessmentID.String()).Msg("Payload cache write failed")
	}
	return payload, nil
}

// PrewarmAllCaches loads every definition's learner payload into Redis
// before traffic is accepted, avoiding lazy-load races under a
// thundering herd at test start.
func (s *AssessmentService) PrewarmAllCaches(ctx context.Context) error {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list assessments: %w", err)
	}

	for _, id := range ids {
		def, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}
		if err := s.cachePayload(ctx, def.ForLearner()); err != nil {
			return fmt.Errorf("cache %s: %w", id, err)
		}
	}

	s.log.Info().Int("count", len(ids)).Msg("Assessment payload caches prewarmed")
	return nil
}

func (s *AssessmentService) cachePayload(ctx context.Context, payload *model.AssessmentPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, config.CacheKey.AssessmentPayloadKey(payload.AssessmentID.String()), data, 0).Err()
}
