package ports

import (
	"context"

	"vas-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerService owns merchant balance mutations. Both operations require the
// caller's open database transaction so a debit and the transaction insert
// commit or roll back together.
type LedgerService interface {
	// Debit locks the merchant row, verifies funds and subtracts amount.
	// Fails with a 04 error on insufficient balance or non-positive amount.
	Debit(ctx context.Context, tx pgx.Tx, merchantID int64, amount decimal.Decimal) (*domain.Merchant, error)
	// Credit locks the merchant row, adds amount and appends a funding row.
	Credit(ctx context.Context, tx pgx.Tx, merchantID int64, amount decimal.Decimal, source domain.FundingSource, description string) (*domain.Merchant, error)
}

// AirtimeVendRequest is validated coordinator input for an airtime vend.
type AirtimeVendRequest struct {
	MerchantID  int64
	ProductCode string
	PhoneNumber string
	Amount      decimal.Decimal
	MerchantRef string
}

// DataVendRequest is validated coordinator input for a data vend. The amount
// comes from the bundle, not the caller.
type DataVendRequest struct {
	MerchantID  int64
	ProductCode string
	DataCode    string
	PhoneNumber string
	MerchantRef string
}

// VendResult pairs the transaction with the normalized outcome code the
// client envelope carries.
type VendResult struct {
	Code        string
	Message     string
	Transaction *domain.Transaction
}

// VendingService is the coordinator: validate, debit, dispatch, reconcile.
type VendingService interface {
	VendAirtime(ctx context.Context, req AirtimeVendRequest) (*VendResult, error)
	VendData(ctx context.Context, req DataVendRequest) (*VendResult, error)
	// TransactionByRef is the client-initiated status lookup.
	TransactionByRef(ctx context.Context, merchantID int64, merchantRef string) (*domain.Transaction, error)
}

// RequeryOutcome tells the queue what to do with a requery task.
type RequeryOutcome int

const (
	RequeryDone  RequeryOutcome = iota // terminal, or nothing to do
	RequeryAgain                       // still pending upstream, retry later
)

// ReconcileService is the async half of the pipeline: provider requeries and
// the timeout reversal sweep.
type ReconcileService interface {
	// RequeryTransaction re-checks a pending transaction upstream. attempt is
	// zero-based; when attempts are exhausted the transaction stays Processing.
	RequeryTransaction(ctx context.Context, transactionID int64, attempt int) (RequeryOutcome, error)
	// SweepTimedOut reverses Pending, unreversed transactions older than the
	// configured threshold. Returns how many rows were reversed.
	SweepTimedOut(ctx context.Context) (int, error)
}

// CatalogService serves reference-data lookups through the shared cache.
type CatalogService interface {
	ActiveCategories(ctx context.Context) ([]domain.ProductCategory, error)
	ProductsByCategory(ctx context.Context, categoryCode string) ([]domain.Product, error)
	ProductByCode(ctx context.Context, productCode string) (*domain.Product, error)
	DataBundles(ctx context.Context, productCode string) ([]domain.DataPackage, error)
	// DataPackage resolves a bundle plus the plan code dispatched when the
	// bundle is routed through providerCode ("" when no mapping exists).
	DataPackage(ctx context.Context, productCode, dataCode, providerCode string) (*domain.DataPackage, string, error)
}

// TokenService issues the legacy merchant JWTs, signed with the merchant's
// own api_secret.
type TokenService interface {
	GenerateMerchantToken(ctx context.Context, merchantCode string, expirationMinutes int) (string, error)
}

// RequeryScheduler enqueues a delayed provider requery for a transaction.
// Implemented by the asynq client wrapper; the coordinator only sees this.
type RequeryScheduler interface {
	ScheduleRequery(ctx context.Context, transactionID int64) error
}
