package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names. Changing one strands any tasks already queued under the
// old name.
const (
	TypeTransactionRequery = "transaction:requery"
	TypeTimeoutSweep       = "transaction:sweep_timeouts"
)

// RequeryPayload identifies the transaction a requery task re-checks.
type RequeryPayload struct {
	TransactionID int64 `json:"transaction_id"`
}

// NewRequeryTask builds a requery task for one transaction.
func NewRequeryTask(transactionID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(RequeryPayload{TransactionID: transactionID})
	if err != nil {
		return nil, fmt.Errorf("marshal requery payload: %w", err)
	}
	return asynq.NewTask(TypeTransactionRequery, payload), nil
}

// NewTimeoutSweepTask builds the periodic timeout sweep task. It carries no
// payload; the sweep scans by age.
func NewTimeoutSweepTask() *asynq.Task {
	return asynq.NewTask(TypeTimeoutSweep, nil)
}
