package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// RequeryEnqueuer implements ports.RequeryScheduler on top of an asynq client.
// The first requery runs after the configured delay; asynq drives the retries
// when the handler reports the transaction is still pending.
type RequeryEnqueuer struct {
	client   *asynq.Client
	delay    time.Duration
	maxRetry int
	log      zerolog.Logger
}

// NewRequeryEnqueuer creates a new RequeryEnqueuer.
func NewRequeryEnqueuer(client *asynq.Client, delay time.Duration, maxRetry int, log zerolog.Logger) *RequeryEnqueuer {
	return &RequeryEnqueuer{client: client, delay: delay, maxRetry: maxRetry, log: log}
}

// ScheduleRequery enqueues a delayed requery for the transaction.
func (e *RequeryEnqueuer) ScheduleRequery(ctx context.Context, transactionID int64) error {
	task, err := NewRequeryTask(transactionID)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(e.delay),
		asynq.MaxRetry(e.maxRetry),
	)
	if err != nil {
		return fmt.Errorf("enqueue requery for transaction %d: %w", transactionID, err)
	}

	e.log.Debug().
		Int64("transaction_id", transactionID).
		Str("task_id", info.ID).
		Dur("delay", e.delay).
		Msg("requery scheduled")
	return nil
}
