package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vas-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

const merchantColumns = `id, merchant_code, business_name, user_id, balance_before, current_balance,
	account_type, daily_tranx_limit, today_tranx_count, today_tranx_date,
	api_key, api_secret, api_access_ips, is_active, created_at, updated_at`

func scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := row.Scan(
		&m.ID, &m.MerchantCode, &m.BusinessName, &m.UserID,
		&m.BalanceBefore, &m.CurrentBalance,
		&m.AccountType, &m.DailyTranxLimit, &m.TodayTranxCount, &m.TodayTranxDate,
		&m.APIKey, &m.APISecret, &m.APIAccessIPs, &m.IsActive,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// GetByCode fetches a merchant by its merchant code.
func (r *MerchantRepo) GetByCode(ctx context.Context, merchantCode string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM vas_merchants WHERE merchant_code = $1`

	m, err := scanMerchant(r.pool.QueryRow(ctx, query, merchantCode))
	if err != nil {
		return nil, fmt.Errorf("get merchant by code: %w", err)
	}
	return m, nil
}

// GetByCodeAndKey fetches an active merchant by (merchant_code, api_key).
func (r *MerchantRepo) GetByCodeAndKey(ctx context.Context, merchantCode, apiKey string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM vas_merchants
		WHERE merchant_code = $1 AND api_key = $2 AND is_active = TRUE`

	m, err := scanMerchant(r.pool.QueryRow(ctx, query, merchantCode, apiKey))
	if err != nil {
		return nil, fmt.Errorf("get merchant by code and key: %w", err)
	}
	return m, nil
}

// GetWithDiscount fetches a merchant annotated with its best active discount
// for the given product. When multiple discount rows are active the one with
// the maximum value wins.
func (r *MerchantRepo) GetWithDiscount(ctx context.Context, merchantID int64, productCode string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + `,
		COALESCE((
			SELECT md.discount_type FROM vas_merchant_discount md
			JOIN vas_products p ON p.id = md.product_id
			WHERE md.merchant_id = m.id AND md.is_active = TRUE AND p.product_code = $2
			ORDER BY md.discount_value DESC LIMIT 1
		), '') AS discount_type,
		COALESCE((
			SELECT MAX(md.discount_value) FROM vas_merchant_discount md
			JOIN vas_products p ON p.id = md.product_id
			WHERE md.merchant_id = m.id AND md.is_active = TRUE AND p.product_code = $2
		), 0) AS discount_value
		FROM vas_merchants m WHERE m.id = $1`

	m := &domain.Merchant{}
	err := r.pool.QueryRow(ctx, query, merchantID, productCode).Scan(
		&m.ID, &m.MerchantCode, &m.BusinessName, &m.UserID,
		&m.BalanceBefore, &m.CurrentBalance,
		&m.AccountType, &m.DailyTranxLimit, &m.TodayTranxCount, &m.TodayTranxDate,
		&m.APIKey, &m.APISecret, &m.APIAccessIPs, &m.IsActive,
		&m.CreatedAt, &m.UpdatedAt,
		&m.DiscountType, &m.DiscountValue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant with discount: %w", err)
	}
	return m, nil
}

// GetByIDForUpdate fetches a merchant by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *MerchantRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM vas_merchants WHERE id = $1 FOR UPDATE`

	m, err := scanMerchant(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get merchant for update: %w", err)
	}
	return m, nil
}

// UpdateBalance writes the balance pair stamped by the ledger within a transaction.
func (r *MerchantRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id int64, balanceBefore, currentBalance decimal.Decimal) error {
	query := `UPDATE vas_merchants SET balance_before = $1, current_balance = $2, updated_at = NOW() WHERE id = $3`

	tag, err := tx.Exec(ctx, query, balanceBefore, currentBalance, id)
	if err != nil {
		return fmt.Errorf("update merchant balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merchant not found: %d", id)
	}
	return nil
}

// IncrementDailyCount bumps today's transaction count in a single guarded
// UPDATE. A stale today_tranx_date resets the count to 1; a row already at its
// daily limit matches nothing and the method returns false.
func (r *MerchantRepo) IncrementDailyCount(ctx context.Context, id int64, today time.Time) (bool, error) {
	query := `UPDATE vas_merchants
		SET today_tranx_count = CASE WHEN today_tranx_date = $2 THEN today_tranx_count + 1 ELSE 1 END,
		    today_tranx_date = $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND (today_tranx_date IS DISTINCT FROM $2 OR today_tranx_count < daily_tranx_limit)`

	tag, err := r.pool.Exec(ctx, query, id, today)
	if err != nil {
		return false, fmt.Errorf("increment daily count: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CreateFunding appends an audit row for a merchant credit within a transaction.
func (r *MerchantRepo) CreateFunding(ctx context.Context, tx pgx.Tx, f *domain.MerchantFunding) error {
	query := `INSERT INTO vas_merchant_funding (funding_ref, merchant_id, amount, description, source,
		balance_before, balance_after, is_approved, is_credited, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		f.FundingRef, f.MerchantID, f.Amount, f.Description, f.Source,
		f.BalanceBefore, f.BalanceAfter, f.IsApproved, f.IsCredited, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert merchant funding: %w", err)
	}
	return nil
}
