package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueExport = "jobs:export"

// Job is the generic envelope for all async tasks.
type Job struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one job payload. A returned error counts as a failed
// attempt; after maxAttempts the job lands in the DLQ.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// ExportJobPayload asks the export worker to rewrite the inventory snapshot.
// Trigger records what caused it; the snapshot itself is always full.
type ExportJobPayload struct {
	Trigger string `json:"trigger"` // sale_committed | day_closed
	SaleID  int64  `json:"sale_id,omitempty"`
	Day     string `json:"day,omitempty"`
}

// EnqueueSaleCommitted schedules a snapshot export after a checkout commits.
func (d *Dispatcher) EnqueueSaleCommitted(ctx context.Context, saleID int64) error {
	return d.enqueue(ctx, QueueExport, "export", ExportJobPayload{Trigger: "sale_committed", SaleID: saleID})
}

// EnqueueDayClosed schedules a snapshot export after a cash day is closed.
func (d *Dispatcher) EnqueueDayClosed(ctx context.Context, day string) error {
	return d.enqueue(ctx, QueueExport, "export", ExportJobPayload{Trigger: "day_closed", Day: day})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{ID: uuid.NewString(), Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

const (
	maxAttempts  = 3
	retryBackoff = 2 * time.Second
)

// StartWorkerPool launches numWorkers goroutines consuming the export queue.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueExport).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	h, ok := handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		return
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = h.Process(ctx, job.Payload); lastErr == nil {
			return
		}
		log.Warn().Err(lastErr).Str("job_id", job.ID).Str("type", job.Type).Int("attempt", attempt).Msg("job attempt failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, lastErr.Error(), maxAttempts)
}
