package ports

import (
	"context"
	"time"

	"vas-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MerchantRepository defines persistence operations for merchants.
// Methods accepting pgx.Tx run inside transaction blocks for pessimistic locking.
type MerchantRepository interface {
	GetByCode(ctx context.Context, merchantCode string) (*domain.Merchant, error)
	// GetByCodeAndKey resolves an active merchant by (merchant_code, api_key).
	GetByCodeAndKey(ctx context.Context, merchantCode, apiKey string) (*domain.Merchant, error)
	// GetWithDiscount loads a merchant annotated with the best active discount
	// for productCode (MAX(discount_value) across active rows).
	GetWithDiscount(ctx context.Context, merchantID int64, productCode string) (*domain.Merchant, error)
	// GetByIDForUpdate locks the merchant row. MUST be called within a transaction.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Merchant, error)
	// UpdateBalance writes the balance pair stamped by the ledger.
	UpdateBalance(ctx context.Context, tx pgx.Tx, id int64, balanceBefore, currentBalance decimal.Decimal) error
	// IncrementDailyCount bumps today's transaction count, resetting it when
	// the stored date is not today. Returns false when the daily limit is hit.
	IncrementDailyCount(ctx context.Context, id int64, today time.Time) (bool, error)
	// CreateFunding appends an audit row for a credit.
	CreateFunding(ctx context.Context, tx pgx.Tx, funding *domain.MerchantFunding) error
}

// TransactionOutcome is the whitelisted field set a reconciliation write may touch.
type TransactionOutcome struct {
	Status       domain.TransactionStatus
	ProviderRef  *string
	ProviderDesc *string
	IsReverse    bool
	ReversedAt   *time.Time
}

// TransactionRepository defines persistence for transactions. Create/update
// only; rows are never deleted.
type TransactionRepository interface {
	// Create inserts a new transaction. A merchant_ref collision surfaces as
	// apperror.ErrDuplicateReference.
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByMerchantRef(ctx context.Context, merchantID int64, merchantRef string) (*domain.Transaction, error)
	// GetByIDForUpdate locks the transaction row. MUST be called within a transaction.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Transaction, error)
	UpdateOutcome(ctx context.Context, tx pgx.Tx, id int64, outcome TransactionOutcome) error
	// ListTimedOut returns up to limit Pending, unreversed transactions
	// created at or before cutoff.
	ListTimedOut(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error)
}

// CatalogRepository defines read access to reference data.
type CatalogRepository interface {
	ActiveCategories(ctx context.Context) ([]domain.ProductCategory, error)
	ProductsByCategory(ctx context.Context, categoryCode string) ([]domain.Product, error)
	ProductByCode(ctx context.Context, productCode string) (*domain.Product, error)
	DataBundles(ctx context.Context, productCode string) ([]domain.DataPackage, error)
	DataPackage(ctx context.Context, productCode, dataCode string) (*domain.DataPackage, error)
	// ProviderPlanCode resolves the provider-specific plan code for a bundle,
	// or "" when no active mapping exists.
	ProviderPlanCode(ctx context.Context, dataPackageID int64, providerCode string) (string, error)
}

// ProviderAccountRepository defines persistence for provider accounts.
type ProviderAccountRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.ProviderAccount, error)
	// UpdateBalances records the balance reported by the upstream and the
	// locally tracked available balance. Best-effort bookkeeping.
	UpdateBalances(ctx context.Context, id int64, available, atProvider decimal.Decimal) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
