package service

import (
	"context"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// fakeTx satisfies pgx.Tx for services that only pass the handle through to
// repositories. Only Commit and Rollback carry behavior.
type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}
func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

type fakeTransactor struct {
	txs      []*fakeTx
	beginErr error
}

func (f *fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	tx := &fakeTx{}
	f.txs = append(f.txs, tx)
	return tx, nil
}

type fakeMerchantRepo struct {
	merchant       *domain.Merchant
	getErr         error
	incrementOK    bool
	incrementErr   error
	balanceWrites  int
	updateErr      error
	fundings       []*domain.MerchantFunding
	fundingErr     error
	incrementCalls int
}

func (f *fakeMerchantRepo) GetByCode(ctx context.Context, merchantCode string) (*domain.Merchant, error) {
	return f.merchant, f.getErr
}

func (f *fakeMerchantRepo) GetByCodeAndKey(ctx context.Context, merchantCode, apiKey string) (*domain.Merchant, error) {
	return f.merchant, f.getErr
}

func (f *fakeMerchantRepo) GetWithDiscount(ctx context.Context, merchantID int64, productCode string) (*domain.Merchant, error) {
	return f.merchant, f.getErr
}

func (f *fakeMerchantRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Merchant, error) {
	return f.merchant, f.getErr
}

func (f *fakeMerchantRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id int64, balanceBefore, currentBalance decimal.Decimal) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.balanceWrites++
	if f.merchant != nil {
		f.merchant.BalanceBefore = balanceBefore
		f.merchant.CurrentBalance = currentBalance
	}
	return nil
}

func (f *fakeMerchantRepo) IncrementDailyCount(ctx context.Context, id int64, today time.Time) (bool, error) {
	f.incrementCalls++
	return f.incrementOK, f.incrementErr
}

func (f *fakeMerchantRepo) CreateFunding(ctx context.Context, tx pgx.Tx, funding *domain.MerchantFunding) error {
	if f.fundingErr != nil {
		return f.fundingErr
	}
	f.fundings = append(f.fundings, funding)
	return nil
}

type fakeTxRepo struct {
	nextID    int64
	created   []*domain.Transaction
	createErr error
	byID      map[int64]*domain.Transaction
	byRef     *domain.Transaction
	outcomes  []ports.TransactionOutcome
	timedOut  []domain.Transaction
}

func (f *fakeTxRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now().UTC()
	f.created = append(f.created, t)
	if f.byID == nil {
		f.byID = make(map[int64]*domain.Transaction)
	}
	f.byID[t.ID] = t
	return nil
}

func (f *fakeTxRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	return f.byID[id], nil
}

func (f *fakeTxRepo) GetByMerchantRef(ctx context.Context, merchantID int64, merchantRef string) (*domain.Transaction, error) {
	return f.byRef, nil
}

func (f *fakeTxRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Transaction, error) {
	return f.byID[id], nil
}

func (f *fakeTxRepo) UpdateOutcome(ctx context.Context, tx pgx.Tx, id int64, outcome ports.TransactionOutcome) error {
	f.outcomes = append(f.outcomes, outcome)
	if t, ok := f.byID[id]; ok {
		t.Status = outcome.Status
		if outcome.IsReverse {
			t.IsReverse = true
			t.ReversedAt = outcome.ReversedAt
		}
	}
	return nil
}

func (f *fakeTxRepo) ListTimedOut(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	return f.timedOut, nil
}

type fakeAccountRepo struct {
	account        *domain.ProviderAccount
	balanceUpdates []decimal.Decimal
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*domain.ProviderAccount, error) {
	return f.account, nil
}

func (f *fakeAccountRepo) UpdateBalances(ctx context.Context, id int64, available, atProvider decimal.Decimal) error {
	f.balanceUpdates = append(f.balanceUpdates, available)
	return nil
}

type fakeCatalog struct {
	product  *domain.Product
	bundle   *domain.DataPackage
	planCode string
}

func (f *fakeCatalog) ActiveCategories(ctx context.Context) ([]domain.ProductCategory, error) {
	return nil, nil
}

func (f *fakeCatalog) ProductsByCategory(ctx context.Context, categoryCode string) ([]domain.Product, error) {
	return nil, nil
}

func (f *fakeCatalog) ProductByCode(ctx context.Context, productCode string) (*domain.Product, error) {
	return f.product, nil
}

func (f *fakeCatalog) DataBundles(ctx context.Context, productCode string) ([]domain.DataPackage, error) {
	return nil, nil
}

func (f *fakeCatalog) DataPackage(ctx context.Context, productCode, dataCode, providerCode string) (*domain.DataPackage, string, error) {
	return f.bundle, f.planCode, nil
}

type fakeKV struct {
	store  map[string][]byte
	getErr error
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{store: make(map[string][]byte)}
}

func (f *fakeKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.store[key], nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.store[key] = value
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, key string) error {
	delete(f.store, key)
	return nil
}

type fakeCatalogRepo struct {
	categories []domain.ProductCategory
	products   []domain.Product
	product    *domain.Product
	bundles    []domain.DataPackage
	bundle     *domain.DataPackage
	planCode   string
	repoErr    error
	calls      int
}

func (f *fakeCatalogRepo) ActiveCategories(ctx context.Context) ([]domain.ProductCategory, error) {
	f.calls++
	return f.categories, f.repoErr
}

func (f *fakeCatalogRepo) ProductsByCategory(ctx context.Context, categoryCode string) ([]domain.Product, error) {
	f.calls++
	return f.products, f.repoErr
}

func (f *fakeCatalogRepo) ProductByCode(ctx context.Context, productCode string) (*domain.Product, error) {
	f.calls++
	return f.product, f.repoErr
}

func (f *fakeCatalogRepo) DataBundles(ctx context.Context, productCode string) ([]domain.DataPackage, error) {
	f.calls++
	return f.bundles, f.repoErr
}

func (f *fakeCatalogRepo) DataPackage(ctx context.Context, productCode, dataCode string) (*domain.DataPackage, error) {
	f.calls++
	return f.bundle, f.repoErr
}

func (f *fakeCatalogRepo) ProviderPlanCode(ctx context.Context, dataPackageID int64, providerCode string) (string, error) {
	f.calls++
	return f.planCode, f.repoErr
}

type dispatchedVend struct {
	account domain.ProviderAccount
	req     ports.VendRequest
}

type fakeDispatcher struct {
	vendResp    ports.NormalizedResponse
	requeryResp ports.NormalizedResponse
	vends       []dispatchedVend
	requeries   []string
	lastVendCtx context.Context
}

func (f *fakeDispatcher) Vend(ctx context.Context, account domain.ProviderAccount, req ports.VendRequest) ports.NormalizedResponse {
	f.lastVendCtx = ctx
	f.vends = append(f.vends, dispatchedVend{account: account, req: req})
	return f.vendResp
}

func (f *fakeDispatcher) Requery(ctx context.Context, account domain.ProviderAccount, merchantRef, productCode string) ports.NormalizedResponse {
	f.requeries = append(f.requeries, merchantRef)
	return f.requeryResp
}

type fakeScheduler struct {
	scheduled []int64
	err       error
}

func (f *fakeScheduler) ScheduleRequery(ctx context.Context, transactionID int64) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, transactionID)
	return nil
}

type fakeLeases struct {
	grant    bool
	acquires []string
	releases []string
}

func (f *fakeLeases) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.acquires = append(f.acquires, key)
	return f.grant, nil
}

func (f *fakeLeases) Release(ctx context.Context, key string) error {
	f.releases = append(f.releases, key)
	return nil
}

type creditCall struct {
	merchantID int64
	amount     decimal.Decimal
	source     domain.FundingSource
}

type fakeLedger struct {
	merchant  *domain.Merchant
	debitErr  error
	creditErr error
	debits    []decimal.Decimal
	credits   []creditCall
}

func (f *fakeLedger) Debit(ctx context.Context, tx pgx.Tx, merchantID int64, amount decimal.Decimal) (*domain.Merchant, error) {
	if f.debitErr != nil {
		return nil, f.debitErr
	}
	f.debits = append(f.debits, amount)
	return f.merchant, nil
}

func (f *fakeLedger) Credit(ctx context.Context, tx pgx.Tx, merchantID int64, amount decimal.Decimal, source domain.FundingSource, description string) (*domain.Merchant, error) {
	if f.creditErr != nil {
		return nil, f.creditErr
	}
	f.credits = append(f.credits, creditCall{merchantID: merchantID, amount: amount, source: source})
	return f.merchant, nil
}
