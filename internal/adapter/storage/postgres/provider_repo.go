package postgres

import (
	"context"
	"errors"
	"fmt"

	"vas-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProviderAccountRepo implements ports.ProviderAccountRepository.
type ProviderAccountRepo struct {
	pool Pool
}

// NewProviderAccountRepo creates a new ProviderAccountRepo.
func NewProviderAccountRepo(pool Pool) *ProviderAccountRepo {
	return &ProviderAccountRepo{pool: pool}
}

// GetByID fetches a provider account with its provider code.
func (r *ProviderAccountRepo) GetByID(ctx context.Context, id int64) (*domain.ProviderAccount, error) {
	query := `SELECT pa.id, pa.provider_id, pr.provider_code, pa.account_name, pa.vending_sim,
		pa.available_balance, pa.balance_at_provider, pa.config
		FROM vas_provider_accounts pa
		JOIN vas_providers pr ON pr.id = pa.provider_id
		WHERE pa.id = $1`

	a := &domain.ProviderAccount{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.ProviderID, &a.ProviderCode, &a.AccountName, &a.VendingSIM,
		&a.AvailableBalance, &a.BalanceAtProvider, &a.Config,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider account: %w", err)
	}
	return a, nil
}

// UpdateBalances records the balance the upstream last reported alongside the
// locally tracked available balance.
func (r *ProviderAccountRepo) UpdateBalances(ctx context.Context, id int64, available, atProvider decimal.Decimal) error {
	query := `UPDATE vas_provider_accounts
		SET available_balance = $1, balance_at_provider = $2, updated_at = NOW()
		WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, available, atProvider, id)
	if err != nil {
		return fmt.Errorf("update provider account balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("provider account not found: %d", id)
	}
	return nil
}
