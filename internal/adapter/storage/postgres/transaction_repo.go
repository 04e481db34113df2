package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, merchant_ref, merchant_id, amount, discount_amount, balance_before, balance_after,
	beneficiary_account, product_id, product_code, product_category, provider_account_id,
	description, status, is_reverse, reversed_at, provider_ref, provider_desc, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.MerchantRef, &t.MerchantID, &t.Amount, &t.DiscountAmount,
		&t.BalanceBefore, &t.BalanceAfter,
		&t.BeneficiaryAccount, &t.ProductID, &t.ProductCode, &t.ProductCategory, &t.ProviderAccountID,
		&t.Description, &t.Status, &t.IsReverse, &t.ReversedAt,
		&t.ProviderRef, &t.ProviderDesc, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// Create inserts a new transaction within a database transaction. The row ID
// and created_at are written back into t. A merchant_ref collision surfaces
// as a duplicate-reference error.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO vas_transactions (merchant_ref, merchant_id, amount, discount_amount,
		balance_before, balance_after, beneficiary_account, product_id, product_code, product_category,
		provider_account_id, description, status, is_reverse)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query,
		t.MerchantRef, t.MerchantID, t.Amount, t.DiscountAmount,
		t.BalanceBefore, t.BalanceAfter, t.BeneficiaryAccount, t.ProductID, t.ProductCode, t.ProductCategory,
		t.ProviderAccountID, t.Description, t.Status, t.IsReverse,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.ErrDuplicateReference()
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by ID.
func (r *TransactionRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM vas_transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// GetByMerchantRef fetches a transaction by merchant ID and merchant reference.
func (r *TransactionRepo) GetByMerchantRef(ctx context.Context, merchantID int64, merchantRef string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM vas_transactions
		WHERE merchant_id = $1 AND merchant_ref = $2`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, merchantID, merchantRef))
	if err != nil {
		return nil, fmt.Errorf("get transaction by merchant_ref: %w", err)
	}
	return t, nil
}

// GetByIDForUpdate fetches a transaction by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM vas_transactions WHERE id = $1 FOR UPDATE`

	t, err := scanTransaction(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction for update: %w", err)
	}
	return t, nil
}

// UpdateOutcome writes a reconciliation outcome within a database transaction.
// Only the whitelisted outcome fields are touched.
func (r *TransactionRepo) UpdateOutcome(ctx context.Context, tx pgx.Tx, id int64, o ports.TransactionOutcome) error {
	query := `UPDATE vas_transactions
		SET status = $1, provider_ref = COALESCE($2, provider_ref), provider_desc = COALESCE($3, provider_desc),
		    is_reverse = $4, reversed_at = $5, updated_at = NOW()
		WHERE id = $6`

	tag, err := tx.Exec(ctx, query, o.Status, o.ProviderRef, o.ProviderDesc, o.IsReverse, o.ReversedAt, id)
	if err != nil {
		return fmt.Errorf("update transaction outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %d", id)
	}
	return nil
}

// ListTimedOut returns up to limit Pending, unreversed transactions created at
// or before cutoff, oldest first.
func (r *TransactionRepo) ListTimedOut(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM vas_transactions
		WHERE status = $1 AND is_reverse = FALSE AND created_at <= $2
		ORDER BY created_at ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.TransactionStatusPending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list timed out transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.ID, &t.MerchantRef, &t.MerchantID, &t.Amount, &t.DiscountAmount,
			&t.BalanceBefore, &t.BalanceAfter,
			&t.BeneficiaryAccount, &t.ProductID, &t.ProductCode, &t.ProductCategory, &t.ProviderAccountID,
			&t.Description, &t.Status, &t.IsReverse, &t.ReversedAt,
			&t.ProviderRef, &t.ProviderDesc, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan timed out transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timed out transactions: %w", err)
	}
	return out, nil
}
