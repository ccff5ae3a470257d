// Package recovery persists the single in-flight attempt per user so
// an attempt survives page reloads and process crashes. The one key
// per user is also the structural one-attempt-in-flight lock.
package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
	"github.com/redis/go-redis/v9"
)

// ErrAttemptInFlight is returned by Begin when a record already exists.
var ErrAttemptInFlight = errors.New("an attempt is already in flight for this user")

// ErrNoRecord is returned by Load when the user has no in-flight attempt.
var ErrNoRecord = errors.New("no in-flight attempt record")

// Record is the durable layout of an in-flight attempt. A single
// record, not an array: the layout itself enforces the one-attempt
// invariant.
type Record struct {
	SessionID      uuid.UUID                  `json:"session_id"`
	AssessmentID   uuid.UUID                  `json:"assessment_id"`
	Answers        map[uuid.UUID]model.Answer `json:"answers"`
	StartTimestamp int64                      `json:"start_timestamp"` // unix seconds
}

// Store is the Redis-backed recovery store.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a Store on the given Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Begin writes the record for a freshly started attempt. Fails with
// ErrAttemptInFlight if the user already has one (SETNX semantics).
func (s *Store) Begin(ctx context.Context, userID int, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, config.CacheKey.UserAttemptKey(userID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if !ok {
		return ErrAttemptInFlight
	}
	return nil
}

// Load returns the user's in-flight record, or ErrNoRecord.
func (s *Store) Load(ctx context.Context, userID int) (*Record, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.UserAttemptKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// SaveAnswers writes the record through with the latest answers. Called
// on every answer change, so a crash loses at most one keystroke.
func (s *Store) SaveAnswers(ctx context.Context, userID int, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.UserAttemptKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Clear removes the record. Returns true when a record was actually
// deleted, so callers can assert the clear happened exactly once.
func (s *Store) Clear(ctx context.Context, userID int) (bool, error) {
	n, err := s.rdb.Del(ctx, config.CacheKey.UserAttemptKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return n > 0, nil
}
