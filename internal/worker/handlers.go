package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vas-gateway/internal/core/ports"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Handlers owns the asynq task handlers for the reconciliation pipeline.
type Handlers struct {
	reconcile ports.ReconcileService
	log       zerolog.Logger
}

// NewHandlers creates a new Handlers.
func NewHandlers(reconcile ports.ReconcileService, log zerolog.Logger) *Handlers {
	return &Handlers{reconcile: reconcile, log: log}
}

// Register mounts the handlers on the mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeTransactionRequery, h.HandleRequery)
	mux.HandleFunc(TypeTimeoutSweep, h.HandleTimeoutSweep)
}

// HandleRequery processes one requery task. Returning an error hands the task
// back to asynq for a retry; the service itself decides when to stop asking.
func (h *Handlers) HandleRequery(ctx context.Context, t *asynq.Task) error {
	var payload RequeryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// Malformed payloads can never succeed; drop instead of retrying.
		h.log.Error().Err(err).Msg("malformed requery payload")
		return fmt.Errorf("unmarshal requery payload: %w: %w", err, asynq.SkipRetry)
	}

	attempt, _ := asynq.GetRetryCount(ctx)
	outcome, err := h.reconcile.RequeryTransaction(ctx, payload.TransactionID, attempt)
	if err != nil {
		h.log.Error().Err(err).Int64("transaction_id", payload.TransactionID).Msg("requery failed")
		return err
	}
	if outcome == ports.RequeryAgain {
		return fmt.Errorf("transaction %d still pending upstream", payload.TransactionID)
	}
	return nil
}

// HandleTimeoutSweep runs one sweep over aged Pending transactions.
func (h *Handlers) HandleTimeoutSweep(ctx context.Context, t *asynq.Task) error {
	count, err := h.reconcile.SweepTimedOut(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("timeout sweep failed")
		return err
	}
	h.log.Info().Int("reversed", count).Msg("timeout sweep completed")
	return nil
}

// FixedRetryDelay makes asynq retry at a constant interval instead of its
// default exponential backoff, matching the requery cadence.
func FixedRetryDelay(interval time.Duration) asynq.RetryDelayFunc {
	return func(n int, err error, task *asynq.Task) time.Duration {
		return interval
	}
}
