package worker

// Background goroutine that periodically re-attempts jobs parked in the DLQ.
// Entries that keep failing past the redrive cap are moved to a dead list so
// the loop always terminates.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redriveTickInterval = 30 * time.Second
	redriveBatchSize    = 10
	redriveMaxAttempts  = 9

	deadPrefix = "dead:"
)

// StartDLQRedrive launches a goroutine that ticks every 30s and re-runs
// parked jobs from dlq:{queue} through their handler. It respects the
// context for graceful shutdown.
func StartDLQRedrive(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, queue string) {
	go func() {
		ticker := time.NewTicker(redriveTickInterval)
		defer ticker.Stop()

		log.Info().Str("queue", queue).Msg("dlq redrive: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("dlq redrive: shutting down")
				return
			case <-ticker.C:
				processRedrives(ctx, rdb, handlers, queue)
			}
		}
	}()
}

func processRedrives(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, queue string) {
	dlqKey := DLQPrefix + queue

	for i := 0; i < redriveBatchSize; i++ {
		raw, err := rdb.RPop(ctx, dlqKey).Result()
		if err != nil {
			return // empty queue or redis down, next tick will retry
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq redrive: invalid entry, discarding")
			continue
		}

		h, ok := handlers[entry.JobType]
		if !ok {
			log.Error().Str("type", entry.JobType).Msg("dlq redrive: no handler, discarding")
			continue
		}

		if err := h.Process(ctx, entry.Payload); err != nil {
			entry.Attempts++
			entry.Reason = err.Error()
			entry.FailedAt = time.Now().UTC().Format(time.RFC3339)

			if entry.Attempts >= redriveMaxAttempts {
				moveToDead(ctx, rdb, queue, &entry)
				continue
			}

			data, merr := json.Marshal(entry)
			if merr != nil {
				log.Error().Err(merr).Msg("dlq redrive: failed to re-marshal entry")
				continue
			}
			if perr := rdb.LPush(ctx, dlqKey, data).Err(); perr != nil {
				log.Error().Err(perr).Str("dlq_key", dlqKey).Msg("dlq redrive: failed to repark entry")
			}
			log.Warn().
				Err(err).
				Str("type", entry.JobType).
				Int("attempts", entry.Attempts).
				Msg("dlq redrive: attempt failed, reparked")
			continue
		}

		log.Info().
			Str("type", entry.JobType).
			Int("attempts", entry.Attempts).
			Msg("dlq redrive: parked job recovered")
	}
}

// moveToDead parks an exhausted entry where the redrive no longer sees it.
// Dead entries are only for manual inspection.
func moveToDead(ctx context.Context, rdb *redis.Client, queue string, entry *DLQEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Msg("dlq redrive: failed to marshal dead entry")
		return
	}
	deadKey := DLQPrefix + deadPrefix + queue
	if err := rdb.LPush(ctx, deadKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dead_key", deadKey).Msg("dlq redrive: failed to push dead entry")
		return
	}
	log.Error().
		Str("type", entry.JobType).
		Int("attempts", entry.Attempts).
		Str("reason", entry.Reason).
		Msg("dlq redrive: redrive cap exceeded, entry moved to dead list")
}
