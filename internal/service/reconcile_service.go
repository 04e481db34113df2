package service

import (
	"context"
	"fmt"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const requeryLeaseTTL = 60 * time.Second

// ReconcileServiceImpl drives the async half of the pipeline: provider
// requeries for Processing transactions and the timeout reversal sweep for
// Pending rows the dispatch never resolved.
type ReconcileServiceImpl struct {
	txRepo      ports.TransactionRepository
	accountRepo ports.ProviderAccountRepository
	ledger      ports.LedgerService
	dispatcher  ports.ProviderDispatcher
	transactor  ports.DBTransactor
	leases      ports.LeaseStore
	maxAttempts int
	sweepAge    time.Duration
	sweepBatch  int
	log         zerolog.Logger
}

// NewReconcileService creates a new ReconcileServiceImpl. maxAttempts bounds
// requery retries; sweepAge is how old a Pending row must be before the
// sweeper reverses it.
func NewReconcileService(
	txRepo ports.TransactionRepository,
	accountRepo ports.ProviderAccountRepository,
	ledger ports.LedgerService,
	dispatcher ports.ProviderDispatcher,
	transactor ports.DBTransactor,
	leases ports.LeaseStore,
	maxAttempts int,
	sweepAge time.Duration,
	sweepBatch int,
	log zerolog.Logger,
) *ReconcileServiceImpl {
	return &ReconcileServiceImpl{
		txRepo:      txRepo,
		accountRepo: accountRepo,
		ledger:      ledger,
		dispatcher:  dispatcher,
		transactor:  transactor,
		leases:      leases,
		maxAttempts: maxAttempts,
		sweepAge:    sweepAge,
		sweepBatch:  sweepBatch,
		log:         log,
	}
}

// RequeryTransaction re-checks one transaction upstream. A short lease keeps
// concurrent workers off the same row; losing the lease means another worker
// already has it, which counts as done.
func (s *ReconcileServiceImpl) RequeryTransaction(ctx context.Context, transactionID int64, attempt int) (ports.RequeryOutcome, error) {
	leaseKey := ports.KeyRequeryLease(transactionID)
	held, err := s.leases.Acquire(ctx, leaseKey, requeryLeaseTTL)
	if err != nil {
		return ports.RequeryDone, fmt.Errorf("acquire requery lease: %w", err)
	}
	if !held {
		s.log.Debug().Int64("transaction_id", transactionID).Msg("requery lease held elsewhere, skipping")
		return ports.RequeryDone, nil
	}
	defer s.leases.Release(ctx, leaseKey)

	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return ports.RequeryDone, fmt.Errorf("load transaction %d: %w", transactionID, err)
	}
	if txn == nil || !txn.Reconcilable() {
		return ports.RequeryDone, nil
	}
	if txn.ProviderAccountID == nil {
		s.log.Warn().Int64("transaction_id", transactionID).Msg("transaction has no provider account, cannot requery")
		return ports.RequeryDone, nil
	}

	account, err := s.accountRepo.GetByID(ctx, *txn.ProviderAccountID)
	if err != nil {
		return ports.RequeryDone, fmt.Errorf("load provider account: %w", err)
	}
	if account == nil {
		s.log.Warn().Int64("transaction_id", transactionID).Msg("provider account missing, cannot requery")
		return ports.RequeryDone, nil
	}

	resp := s.dispatcher.Requery(ctx, *account, txn.MerchantRef, txn.ProductCode)
	s.log.Info().
		Int64("transaction_id", transactionID).
		Int("attempt", attempt).
		Str("response_code", resp.ResponseCode).
		Msg("requery response")

	switch resp.ResponseCode {
	case apperror.CodeSuccess:
		if err := s.markSuccess(ctx, txn, resp); err != nil {
			return ports.RequeryDone, err
		}
		return ports.RequeryDone, nil

	case apperror.CodePending:
		// attempt counts retries, so the initial delivery is attempt 0 and
		// maxAttempts more follow it.
		if attempt < s.maxAttempts {
			return ports.RequeryAgain, nil
		}
		// Retries exhausted with the provider still undecided. Leave the row
		// Processing for operators; reversing here could double-credit a vend
		// that later succeeds upstream.
		if err := s.noteStillPending(ctx, txn, resp.ResponseMessage); err != nil {
			return ports.RequeryDone, err
		}
		return ports.RequeryDone, nil

	case apperror.CodeNotImplemented:
		// The upstream has no requery capability. Leave the row untouched;
		// there is no safe basis to either confirm or refund.
		return ports.RequeryDone, nil

	default:
		if _, err := s.reverse(ctx, txn, resp.ResponseMessage); err != nil {
			return ports.RequeryDone, err
		}
		return ports.RequeryDone, nil
	}
}

// SweepTimedOut reverses Pending, unreversed transactions older than the sweep
// age. Each row gets its own transaction so one failure does not block the
// batch.
func (s *ReconcileServiceImpl) SweepTimedOut(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.sweepAge)
	rows, err := s.txRepo.ListTimedOut(ctx, cutoff, s.sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list timed-out transactions: %w", err)
	}

	reversed := 0
	for i := range rows {
		txn := rows[i]
		done, err := s.reverse(ctx, &txn, "Transaction timed out")
		if err != nil {
			s.log.Error().Err(err).Int64("transaction_id", txn.ID).Msg("timeout reversal failed")
			continue
		}
		if done {
			reversed++
		}
	}
	if reversed > 0 {
		s.log.Info().Int("count", reversed).Msg("timed-out transactions reversed")
	}
	return reversed, nil
}

// markSuccess promotes the transaction to Success under its row lock, after
// re-checking no concurrent writer already finished it.
func (s *ReconcileServiceImpl) markSuccess(ctx context.Context, txn *domain.Transaction, resp ports.NormalizedResponse) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin success write: %w", err)
	}
	defer dbTx.Rollback(ctx)

	locked, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, txn.ID)
	if err != nil {
		return fmt.Errorf("lock transaction: %w", err)
	}
	if locked == nil || locked.IsTerminal() {
		return nil
	}

	if err := s.txRepo.UpdateOutcome(ctx, dbTx, txn.ID, ports.TransactionOutcome{
		Status:       domain.TransactionStatusSuccess,
		ProviderRef:  strOrNil(resp.ProviderRef),
		ProviderDesc: strOrNil(resp.ResponseMessage),
	}); err != nil {
		return fmt.Errorf("mark transaction success: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit success write: %w", err)
	}
	s.log.Info().Int64("transaction_id", txn.ID).Msg("requery confirmed success")
	return nil
}

// noteStillPending records the latest provider description without changing
// state.
func (s *ReconcileServiceImpl) noteStillPending(ctx context.Context, txn *domain.Transaction, providerDesc string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin pending note: %w", err)
	}
	defer dbTx.Rollback(ctx)

	locked, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, txn.ID)
	if err != nil {
		return fmt.Errorf("lock transaction: %w", err)
	}
	if locked == nil || locked.IsTerminal() {
		return nil
	}

	if err := s.txRepo.UpdateOutcome(ctx, dbTx, txn.ID, ports.TransactionOutcome{
		Status:       domain.TransactionStatusProcessing,
		ProviderDesc: strOrNil(providerDesc),
	}); err != nil {
		return fmt.Errorf("note pending transaction: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit pending note: %w", err)
	}
	s.log.Warn().Int64("transaction_id", txn.ID).Msg("requery retries exhausted, left Processing for manual review")
	return nil
}

// reverse fails the transaction and credits the merchant back, reporting
// whether it actually acted. The row lock plus the is_reverse re-check make
// the refund exactly-once even when the sweeper and a requery race.
func (s *ReconcileServiceImpl) reverse(ctx context.Context, txn *domain.Transaction, providerDesc string) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin reversal: %w", err)
	}
	defer dbTx.Rollback(ctx)

	locked, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, txn.ID)
	if err != nil {
		return false, fmt.Errorf("lock transaction: %w", err)
	}
	if locked == nil || locked.IsReverse || locked.Status == domain.TransactionStatusSuccess {
		return false, nil
	}

	if _, err := s.ledger.Credit(ctx, dbTx, locked.MerchantID, locked.DiscountAmount, domain.FundingSourceAutoReversal, fmt.Sprintf("Reversal for %s", locked.MerchantRef)); err != nil {
		return false, fmt.Errorf("credit reversal: %w", err)
	}

	now := time.Now().UTC()
	if err := s.txRepo.UpdateOutcome(ctx, dbTx, locked.ID, ports.TransactionOutcome{
		Status:       domain.TransactionStatusFailed,
		ProviderDesc: strOrNil(providerDesc),
		IsReverse:    true,
		ReversedAt:   &now,
	}); err != nil {
		return false, fmt.Errorf("mark transaction reversed: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit reversal: %w", err)
	}
	s.log.Info().
		Int64("transaction_id", locked.ID).
		Str("merchant_ref", locked.MerchantRef).
		Msg("transaction reversed")
	return true, nil
}
