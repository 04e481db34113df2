package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Adapter reply messages the coordinator echoes to clients.
const (
	msgVendSuccessful = "Successful"
	msgVendPending    = "Transaction is pending, awaiting response from provider"
)

// VendingServiceImpl is the synchronous vend coordinator: validate, reserve
// funds, dispatch upstream, reconcile the reply. A Pending row plus a debit
// commit before the provider is ever called, so a crash mid-dispatch leaves a
// reversible trail instead of free airtime.
type VendingServiceImpl struct {
	merchantRepo ports.MerchantRepository
	txRepo       ports.TransactionRepository
	accountRepo  ports.ProviderAccountRepository
	catalog      ports.CatalogService
	ledger       ports.LedgerService
	dispatcher   ports.ProviderDispatcher
	transactor   ports.DBTransactor
	scheduler    ports.RequeryScheduler
	loc          *time.Location
	log          zerolog.Logger
}

// NewVendingService creates a new VendingServiceImpl. loc is the business
// timezone used for the merchant daily-count window.
func NewVendingService(
	merchantRepo ports.MerchantRepository,
	txRepo ports.TransactionRepository,
	accountRepo ports.ProviderAccountRepository,
	catalog ports.CatalogService,
	ledger ports.LedgerService,
	dispatcher ports.ProviderDispatcher,
	transactor ports.DBTransactor,
	scheduler ports.RequeryScheduler,
	loc *time.Location,
	log zerolog.Logger,
) *VendingServiceImpl {
	return &VendingServiceImpl{
		merchantRepo: merchantRepo,
		txRepo:       txRepo,
		accountRepo:  accountRepo,
		catalog:      catalog,
		ledger:       ledger,
		dispatcher:   dispatcher,
		transactor:   transactor,
		scheduler:    scheduler,
		loc:          loc,
		log:          log,
	}
}

// VendAirtime processes an airtime vend for the face amount in req.
func (s *VendingServiceImpl) VendAirtime(ctx context.Context, req ports.AirtimeVendRequest) (*ports.VendResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("Amount must be greater than 0")
	}
	phone := domain.NormalizeMSISDN(req.PhoneNumber)

	product, account, err := s.resolveRoute(ctx, req.ProductCode, domain.CategoryAirtime)
	if err != nil {
		return nil, err
	}

	txn, err := s.reserve(ctx, req.MerchantID, req.MerchantRef, product, phone, req.Amount)
	if err != nil {
		return nil, err
	}

	// The debit is committed; a client disconnect must not abort the dispatch
	// or the reconcile writes, or the upstream could vend without a record.
	ctx = context.WithoutCancel(ctx)

	resp := s.dispatcher.Vend(ctx, *account, ports.VendRequest{
		MerchantRef:   req.MerchantRef,
		ReceiverPhone: phone,
		Amount:        req.Amount.StringFixed(2),
		ProductCode:   req.ProductCode,
		TariffTypeID:  "1",
	})
	s.recordProviderBalance(ctx, account, resp.ProviderAvailBal)

	return s.reconcileVendOutcome(ctx, txn, resp)
}

// VendData processes a data-bundle vend. The charged amount comes from the
// bundle, and the plan code dispatched upstream is the provider-specific one
// when a mapping exists.
func (s *VendingServiceImpl) VendData(ctx context.Context, req ports.DataVendRequest) (*ports.VendResult, error) {
	phone := domain.NormalizeMSISDN(req.PhoneNumber)

	product, account, err := s.resolveRoute(ctx, req.ProductCode, domain.CategoryData)
	if err != nil {
		return nil, err
	}

	bundle, planCode, err := s.catalog.DataPackage(ctx, req.ProductCode, req.DataCode, account.ProviderCode)
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		return nil, apperror.Validation(fmt.Sprintf("Data code %s is not active for product %s", req.DataCode, req.ProductCode))
	}
	upstreamDataCode := bundle.DataCode
	if planCode != "" {
		upstreamDataCode = planCode
	}

	txn, err := s.reserve(ctx, req.MerchantID, req.MerchantRef, product, phone, bundle.Amount)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	resp := s.dispatcher.Vend(ctx, *account, ports.VendRequest{
		MerchantRef:   req.MerchantRef,
		ReceiverPhone: phone,
		Amount:        bundle.Amount.StringFixed(2),
		ProductCode:   req.ProductCode,
		DataCode:      upstreamDataCode,
		TariffTypeID:  orTariffDefault(bundle.TariffID),
	})
	s.recordProviderBalance(ctx, account, resp.ProviderAvailBal)

	return s.reconcileVendOutcome(ctx, txn, resp)
}

// TransactionByRef is the client-initiated status lookup, scoped to the
// calling merchant.
func (s *VendingServiceImpl) TransactionByRef(ctx context.Context, merchantID int64, merchantRef string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByMerchantRef(ctx, merchantID, merchantRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load transaction %s: %w", merchantRef, err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	return txn, nil
}

// resolveRoute validates the product, checks its category and loads the
// preferred provider account.
func (s *VendingServiceImpl) resolveRoute(ctx context.Context, productCode, wantCategory string) (*domain.Product, *domain.ProviderAccount, error) {
	product, err := s.catalog.ProductByCode(ctx, productCode)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, apperror.Validation(fmt.Sprintf("Product %s is not active", productCode))
	}
	if product.CategoryCode != wantCategory {
		return nil, nil, apperror.Validation(fmt.Sprintf("This product code %s is not for %s", productCode, wantCategory))
	}
	if product.PreferredProviderAccountID == nil {
		return nil, nil, apperror.Validation("No route set for sending vend")
	}

	account, err := s.accountRepo.GetByID(ctx, *product.PreferredProviderAccountID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("load provider account: %w", err))
	}
	if account == nil {
		return nil, nil, apperror.Validation("No route set for sending vend")
	}
	return product, account, nil
}

// reserve debits the merchant and inserts the Pending transaction in one
// database transaction. The daily count bumps first, outside it, so a limit
// rejection never touches the balance.
func (s *VendingServiceImpl) reserve(ctx context.Context, merchantID int64, merchantRef string, product *domain.Product, phone string, amount decimal.Decimal) (*domain.Transaction, error) {
	merchant, err := s.merchantRepo.GetWithDiscount(ctx, merchantID, product.ProductCode)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.Validation("Merchant not found")
	}
	chargeAmount := merchant.DiscountedAmount(amount)

	today := time.Now().In(s.loc)
	ok, err := s.merchantRepo.IncrementDailyCount(ctx, merchantID, today)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("bump daily count: %w", err))
	}
	if !ok {
		return nil, apperror.ErrDailyLimitExceeded()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin transaction: %w", err))
	}
	defer dbTx.Rollback(ctx)

	merchant, err = s.ledger.Debit(ctx, dbTx, merchantID, chargeAmount)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		MerchantRef:        merchantRef,
		MerchantID:         merchantID,
		Amount:             amount,
		DiscountAmount:     chargeAmount,
		BalanceBefore:      merchant.BalanceBefore,
		BalanceAfter:       merchant.CurrentBalance,
		BeneficiaryAccount: phone,
		ProductID:          product.ID,
		ProductCode:        product.ProductCode,
		ProductCategory:    product.CategoryCode,
		ProviderAccountID:  product.PreferredProviderAccountID,
		Description:        fmt.Sprintf("%s vend of %s to %s", product.CategoryCode, amount.StringFixed(2), phone),
		Status:             domain.TransactionStatusPending,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit reservation: %w", err))
	}
	return txn, nil
}

// reconcileVendOutcome folds the normalized provider reply into the stored
// transaction and the client result.
func (s *VendingServiceImpl) reconcileVendOutcome(ctx context.Context, txn *domain.Transaction, resp ports.NormalizedResponse) (*ports.VendResult, error) {
	switch resp.ResponseCode {
	case apperror.CodeSuccess:
		if err := s.writeOutcome(ctx, txn.ID, ports.TransactionOutcome{
			Status:       domain.TransactionStatusSuccess,
			ProviderRef:  strOrNil(resp.ProviderRef),
			ProviderDesc: strOrNil(resp.ResponseMessage),
		}); err != nil {
			return nil, err
		}
		txn.Status = domain.TransactionStatusSuccess
		return &ports.VendResult{Code: apperror.CodeSuccess, Message: msgVendSuccessful, Transaction: txn}, nil

	case apperror.CodePending:
		if err := s.writeOutcome(ctx, txn.ID, ports.TransactionOutcome{
			Status:       domain.TransactionStatusProcessing,
			ProviderRef:  strOrNil(resp.ProviderRef),
			ProviderDesc: strOrNil(resp.ResponseMessage),
		}); err != nil {
			return nil, err
		}
		txn.Status = domain.TransactionStatusProcessing
		if err := s.scheduler.ScheduleRequery(ctx, txn.ID); err != nil {
			s.log.Error().Err(err).Int64("transaction_id", txn.ID).Msg("failed to schedule requery, sweeper will pick it up")
		}
		return &ports.VendResult{Code: apperror.CodePending, Message: msgVendPending, Transaction: txn}, nil

	default:
		if err := s.refundFailedVend(ctx, txn, resp.ResponseMessage); err != nil {
			return nil, err
		}
		txn.Status = domain.TransactionStatusFailed
		txn.IsReverse = true
		code, msg := clientFailure(resp)
		return &ports.VendResult{Code: code, Message: msg, Transaction: txn}, nil
	}
}

// refundFailedVend marks the transaction Failed and credits the debit back,
// atomically and guarded by the row lock so a racing requery cannot double
// refund.
func (s *VendingServiceImpl) refundFailedVend(ctx context.Context, txn *domain.Transaction, providerDesc string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin refund: %w", err))
	}
	defer dbTx.Rollback(ctx)

	locked, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, txn.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if locked == nil {
		return apperror.ErrTransactionNotFound()
	}
	if locked.IsReverse {
		return nil
	}

	if _, err := s.ledger.Credit(ctx, dbTx, txn.MerchantID, txn.DiscountAmount, domain.FundingSourceAutoReversal, fmt.Sprintf("Reversal for %s", txn.MerchantRef)); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.txRepo.UpdateOutcome(ctx, dbTx, txn.ID, ports.TransactionOutcome{
		Status:       domain.TransactionStatusFailed,
		ProviderDesc: strOrNil(providerDesc),
		IsReverse:    true,
		ReversedAt:   &now,
	}); err != nil {
		return apperror.InternalError(fmt.Errorf("mark transaction failed: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit refund: %w", err))
	}
	s.log.Info().
		Int64("transaction_id", txn.ID).
		Str("merchant_ref", txn.MerchantRef).
		Msg("failed vend reversed")
	return nil
}

// writeOutcome persists a terminal or processing outcome in its own short
// transaction.
func (s *VendingServiceImpl) writeOutcome(ctx context.Context, txnID int64, outcome ports.TransactionOutcome) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin outcome write: %w", err))
	}
	defer dbTx.Rollback(ctx)

	if err := s.txRepo.UpdateOutcome(ctx, dbTx, txnID, outcome); err != nil {
		return apperror.InternalError(fmt.Errorf("update transaction outcome: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit outcome write: %w", err))
	}
	return nil
}

// recordProviderBalance is best-effort bookkeeping of the balance the upstream
// reported alongside the vend reply.
func (s *VendingServiceImpl) recordProviderBalance(ctx context.Context, account *domain.ProviderAccount, reported string) {
	bal, err := decimal.NewFromString(reported)
	if err != nil || bal.IsZero() {
		return
	}
	if err := s.accountRepo.UpdateBalances(ctx, account.ID, bal, bal); err != nil {
		s.log.Warn().Err(err).Int64("provider_account_id", account.ID).Msg("failed to record provider balance")
	}
}

// clientFailure maps a provider failure to the code pair returned to clients.
// Only the invalid-MSISDN case keeps its code; everything else collapses to a
// generic processing failure so upstream internals never leak.
func clientFailure(resp ports.NormalizedResponse) (string, string) {
	if resp.ResponseCode == apperror.CodeInvalidMSISDN {
		return apperror.CodeInvalidMSISDN, "Invalid MSISDN"
	}
	return apperror.CodeProcessingError, "Unable to process transaction, please try again"
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orTariffDefault(tariffID string) string {
	if tariffID == "" {
		return "1"
	}
	return tariffID
}
