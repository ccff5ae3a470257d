package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/repository"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// IntegrityWorker drains the integrity signal queue into the
// append-only audit log. Signals arrive far faster than rows are
// worth writing one at a time, so it batches with a COPY fast path
// and a row-by-row fallback.
type IntegrityWorker struct {
	events *repository.IntegrityEventRepository
	rdb    *redis.Client
	log    zerolog.Logger
}

// NewIntegrityWorker creates a new IntegrityWorker.
func NewIntegrityWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *IntegrityWorker {
	return &IntegrityWorker{
		events: repository.NewIntegrityEventRepository(pool),
		rdb:    rdb,
		log:    log.With().Str("component", "integrity_worker").Logger(),
	}
}

type integrityPayload struct {
	UserID    int    `json:"user_id"`
	SessionID string `json:"session_id"`
	Signal    string `json:"signal"`
	Kind      string `json:"kind"`
	At        int64  `json:"at"`
}

// Start begins the batching worker loop. Call in a goroutine.
func (w *IntegrityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]*integrityPayload, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlush = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistIntegrityQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload integrityPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *IntegrityWorker) flushSafe(ctx context.Context, batch []*integrityPayload) {
	events, bad := w.toEvents(batch)
	for _, p := range bad {
		w.log.Error().Str("session_id", p.SessionID).Msg("Dropping integrity event with invalid UUID")
	}
	if len(events) == 0 {
		return
	}

	if err := w.events.BulkInsert(ctx, events); err != nil {
		w.log.Warn().Err(err).Int("count", len(events)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, events)
	}
}

func (w *IntegrityWorker) toEvents(batch []*integrityPayload) ([]*repository.IntegrityEvent, []*integrityPayload) {
	events := make([]*repository.IntegrityEvent, 0, len(batch))
	var bad []*integrityPayload
	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			bad = append(bad, p)
			continue
		}
		events = append(events, &repository.IntegrityEvent{
			SessionID:  sessionID,
			UserID:     p.UserID,
			Signal:     p.Signal,
			Kind:       p.Kind,
			RecordedAt: time.Unix(p.At, 0).UTC(),
		})
	}
	return events, bad
}

func (w *IntegrityWorker) fallbackInsert(ctx context.Context, events []*repository.IntegrityEvent) {
	requeueList := make([]*repository.IntegrityEvent, 0)

	for _, e := range events {
		if err := w.events.Insert(ctx, e); err != nil {
			w.log.Error().Err(err).Int("user_id", e.UserID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, e)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *IntegrityWorker) requeue(ctx context.Context, events []*repository.IntegrityEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range events {
		data, _ := json.Marshal(integrityPayload{
			UserID:    e.UserID,
			SessionID: e.SessionID.String(),
			Signal:    e.Signal,
			Kind:      e.Kind,
			At:        e.RecordedAt.Unix(),
		})
		pipe.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(events)).Msg("Requeued failed items back to Redis")
		// Back off so a hard-down database is not hammered.
		time.Sleep(2 * time.Second)
	}
}

func (w *IntegrityWorker) shutdown(buffer []*integrityPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
