package service

import (
	"context"
	"fmt"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.LedgerService. Every mutation runs under
// the caller's open database transaction so the balance change and whatever
// row motivated it commit together.
type LedgerServiceImpl struct {
	merchantRepo ports.MerchantRepository
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(merchantRepo ports.MerchantRepository, log zerolog.Logger) *LedgerServiceImpl {
	return &LedgerServiceImpl{merchantRepo: merchantRepo, log: log}
}

// Debit locks the merchant row, verifies funds and subtracts amount. The
// returned merchant carries the stamped balance pair.
func (s *LedgerServiceImpl) Debit(ctx context.Context, tx pgx.Tx, merchantID int64, amount decimal.Decimal) (*domain.Merchant, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}

	m, err := s.merchantRepo.GetByIDForUpdate(ctx, tx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock merchant: %w", err))
	}
	if m == nil {
		return nil, apperror.Validation("Merchant not found")
	}
	if m.CurrentBalance.LessThan(amount) {
		return nil, apperror.ErrInsufficientFunds("Insufficient balance")
	}

	balanceBefore := m.CurrentBalance
	newBalance := m.CurrentBalance.Sub(amount)
	if err := s.merchantRepo.UpdateBalance(ctx, tx, merchantID, balanceBefore, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit merchant: %w", err))
	}

	m.BalanceBefore = balanceBefore
	m.CurrentBalance = newBalance
	s.log.Info().
		Int64("merchant_id", merchantID).
		Str("amount", amount.String()).
		Str("balance_after", newBalance.String()).
		Msg("merchant debited")
	return m, nil
}

// Credit locks the merchant row, adds amount and appends a funding audit row.
func (s *LedgerServiceImpl) Credit(ctx context.Context, tx pgx.Tx, merchantID int64, amount decimal.Decimal, source domain.FundingSource, description string) (*domain.Merchant, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}

	m, err := s.merchantRepo.GetByIDForUpdate(ctx, tx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock merchant: %w", err))
	}
	if m == nil {
		return nil, apperror.Validation("Merchant not found")
	}

	balanceBefore := m.CurrentBalance
	newBalance := m.CurrentBalance.Add(amount)
	if err := s.merchantRepo.UpdateBalance(ctx, tx, merchantID, balanceBefore, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit merchant: %w", err))
	}

	funding := &domain.MerchantFunding{
		FundingRef:    uuid.New(),
		MerchantID:    merchantID,
		Amount:        amount,
		Description:   description,
		Source:        source,
		BalanceBefore: balanceBefore,
		BalanceAfter:  newBalance,
		IsApproved:    true,
		IsCredited:    true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.merchantRepo.CreateFunding(ctx, tx, funding); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record funding: %w", err))
	}

	m.BalanceBefore = balanceBefore
	m.CurrentBalance = newBalance
	s.log.Info().
		Int64("merchant_id", merchantID).
		Str("amount", amount.String()).
		Str("source", string(source)).
		Str("balance_after", newBalance.String()).
		Msg("merchant credited")
	return m, nil
}
