package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vas-gateway/internal/adapter/http/middleware"
	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"
	"vas-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMerchantRepo struct {
	merchant *domain.Merchant
}

func (s *stubMerchantRepo) GetByCode(ctx context.Context, merchantCode string) (*domain.Merchant, error) {
	return s.merchant, nil
}

func (s *stubMerchantRepo) GetByCodeAndKey(ctx context.Context, merchantCode, apiKey string) (*domain.Merchant, error) {
	if s.merchant == nil || s.merchant.APIKey != apiKey {
		return nil, nil
	}
	return s.merchant, nil
}

func (s *stubMerchantRepo) GetWithDiscount(ctx context.Context, merchantID int64, productCode string) (*domain.Merchant, error) {
	return s.merchant, nil
}

func (s *stubMerchantRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Merchant, error) {
	return s.merchant, nil
}

func (s *stubMerchantRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id int64, balanceBefore, currentBalance decimal.Decimal) error {
	return nil
}

func (s *stubMerchantRepo) IncrementDailyCount(ctx context.Context, id int64, today time.Time) (bool, error) {
	return true, nil
}

func (s *stubMerchantRepo) CreateFunding(ctx context.Context, tx pgx.Tx, funding *domain.MerchantFunding) error {
	return nil
}

type stubCache struct{}

func (stubCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (stubCache) Delete(ctx context.Context, key string) error { return nil }

type stubVendingService struct {
	result *ports.VendResult
	txn    *domain.Transaction
	err    error
}

func (s *stubVendingService) VendAirtime(ctx context.Context, req ports.AirtimeVendRequest) (*ports.VendResult, error) {
	return s.result, s.err
}

func (s *stubVendingService) VendData(ctx context.Context, req ports.DataVendRequest) (*ports.VendResult, error) {
	return s.result, s.err
}

func (s *stubVendingService) TransactionByRef(ctx context.Context, merchantID int64, merchantRef string) (*domain.Transaction, error) {
	return s.txn, s.err
}

type stubCatalogService struct {
	categories []domain.ProductCategory
	products   []domain.Product
	bundles    []domain.DataPackage
	err        error
}

func (s *stubCatalogService) ActiveCategories(ctx context.Context) ([]domain.ProductCategory, error) {
	return s.categories, s.err
}

func (s *stubCatalogService) ProductsByCategory(ctx context.Context, categoryCode string) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubCatalogService) ProductByCode(ctx context.Context, productCode string) (*domain.Product, error) {
	return nil, nil
}

func (s *stubCatalogService) DataBundles(ctx context.Context, productCode string) ([]domain.DataPackage, error) {
	return s.bundles, s.err
}

func (s *stubCatalogService) DataPackage(ctx context.Context, productCode, dataCode, providerCode string) (*domain.DataPackage, string, error) {
	return nil, "", nil
}

type stubReconcileService struct {
	swept int
	err   error
}

func (s *stubReconcileService) RequeryTransaction(ctx context.Context, transactionID int64, attempt int) (ports.RequeryOutcome, error) {
	return ports.RequeryDone, nil
}

func (s *stubReconcileService) SweepTimedOut(ctx context.Context) (int, error) {
	return s.swept, s.err
}

type stubTokenService struct {
	token string
	err   error
}

func (s *stubTokenService) GenerateMerchantToken(ctx context.Context, merchantCode string, expirationMinutes int) (string, error) {
	return s.token, s.err
}

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(ctx context.Context) error { return s.err }
func (s stubChecker) Name() string                   { return s.name }

type routerFixture struct {
	router    *gin.Engine
	merchant  *domain.Merchant
	vending   *stubVendingService
	catalog   *stubCatalogService
	reconcile *stubReconcileService
	token     *stubTokenService
}

func newRouterFixture() *routerFixture {
	gin.SetMode(gin.TestMode)
	f := &routerFixture{
		merchant: &domain.Merchant{
			ID:           7,
			MerchantCode: "1234567",
			APIKey:       "key-1",
			APISecret:    "secret-1",
			IsActive:     true,
		},
		vending:   &stubVendingService{},
		catalog:   &stubCatalogService{},
		reconcile: &stubReconcileService{},
		token:     &stubTokenService{},
	}
	f.router = SetupRouter(RouterDeps{
		VendingSvc:   f.vending,
		CatalogSvc:   f.catalog,
		ReconcileSvc: f.reconcile,
		TokenSvc:     f.token,
		MerchantRepo: &stubMerchantRepo{merchant: f.merchant},
		AuthCache:    stubCache{},
		Logger:       zerolog.Nop(),
	})
	return f
}

func (f *routerFixture) signedJSON(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	ts := time.Now().UTC().Format(time.RFC3339)
	req.Header.Set(middleware.HeaderMerchantCode, f.merchant.MerchantCode)
	req.Header.Set(middleware.HeaderAPIKey, f.merchant.APIKey)
	req.Header.Set(middleware.HeaderTimestamp, ts)
	req.Header.Set(middleware.HeaderSignature, middleware.Signature(f.merchant.APISecret, ts, f.merchant.APIKey))
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestVendAirtimeEndpoint(t *testing.T) {
	f := newRouterFixture()
	f.vending.result = &ports.VendResult{
		Code:    apperror.CodeSuccess,
		Message: "Successful",
		Transaction: &domain.Transaction{
			MerchantRef:        "REF-1",
			Amount:             decimal.NewFromInt(100),
			DiscountAmount:     decimal.NewFromInt(98),
			BeneficiaryAccount: "08031234567",
			ProductCode:        "MTNVTU",
			Status:             domain.TransactionStatusSuccess,
			CreatedAt:          time.Now().UTC(),
		},
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, f.signedJSON(t, http.MethodPost, "/api/product/vendAirtime", gin.H{
		"product_code": "MTNVTU",
		"phone_number": "08031234567",
		"amount":       100,
		"merchant_ref": "REF-1",
	}))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "00", env.ResponseCode)
	assert.Equal(t, "Successful", env.ResponseMessage)
	data := env.ResponseData.(map[string]any)
	assert.Equal(t, "REF-1", data["merchant_ref"])
	assert.Equal(t, "100.00", data["amount"])
}

func TestVendAirtimeEndpoint_MissingFields(t *testing.T) {
	f := newRouterFixture()

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, f.signedJSON(t, http.MethodPost, "/api/product/vendAirtime", gin.H{
		"product_code": "MTNVTU",
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "02", decodeEnvelope(t, w).ResponseCode)
}

func TestVendAirtimeEndpoint_BadMerchantRef(t *testing.T) {
	f := newRouterFixture()

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, f.signedJSON(t, http.MethodPost, "/api/product/vendAirtime", gin.H{
		"product_code": "MTNVTU",
		"phone_number": "08031234567",
		"amount":       100,
		"merchant_ref": "REF 1;drop",
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "02", decodeEnvelope(t, w).ResponseCode)
}

func TestVendAirtimeEndpoint_Unauthenticated(t *testing.T) {
	f := newRouterFixture()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/product/vendAirtime", bytes.NewBufferString("{}"))
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "07", decodeEnvelope(t, w).ResponseCode)
}

func TestVendDataEndpoint(t *testing.T) {
	f := newRouterFixture()
	f.vending.result = &ports.VendResult{
		Code:    apperror.CodePending,
		Message: "Transaction is pending, awaiting response from provider",
		Transaction: &domain.Transaction{
			MerchantRef: "REF-2",
			Amount:      decimal.NewFromInt(500),
			Status:      domain.TransactionStatusProcessing,
			CreatedAt:   time.Now().UTC(),
		},
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, f.signedJSON(t, http.MethodPost, "/api/product/vendData", gin.H{
		"product_code": "MTNDATA",
		"data_code":    "MTN-1GB",
		"phone_number": "08031234567",
		"merchant_ref": "REF-2",
	}))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "80", env.ResponseCode)
}

func TestRequeryEndpoint_MapsStoredStatus(t *testing.T) {
	cases := []struct {
		status   domain.TransactionStatus
		wantCode string
	}{
		{domain.TransactionStatusSuccess, "00"},
		{domain.TransactionStatusProcessing, "80"},
		{domain.TransactionStatusPending, "80"},
		{domain.TransactionStatusFailed, "90"},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newRouterFixture()
			f.vending.txn = &domain.Transaction{
				MerchantRef: "REF-3",
				Status:      tc.status,
				CreatedAt:   time.Now().UTC(),
			}

			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, f.signedJSON(t, http.MethodPost, "/api/product/requeryTransaction", gin.H{
				"merchant_ref": "REF-3",
			}))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.wantCode, decodeEnvelope(t, w).ResponseCode)
		})
	}
}

func TestRequeryEndpoint_NotFound(t *testing.T) {
	f := newRouterFixture()
	f.vending.err = apperror.ErrTransactionNotFound()

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, f.signedJSON(t, http.MethodPost, "/api/product/requeryTransaction", gin.H{
		"merchant_ref": "MISSING",
	}))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "01", env.ResponseCode)
	assert.Equal(t, "Transaction not found", env.ResponseMessage)
}

func TestGetProductsEndpoint_RequiresCategory(t *testing.T) {
	f := newRouterFixture()

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, f.signedJSON(t, http.MethodGet, "/api/product/getProducts", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "02", decodeEnvelope(t, w).ResponseCode)
}

func TestGetProductCategoriesEndpoint(t *testing.T) {
	f := newRouterFixture()
	f.catalog.categories = []domain.ProductCategory{{ID: 1, CategoryCode: "AIRTIME"}}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, f.signedJSON(t, http.MethodGet, "/api/product/getProductCategories", nil))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "00", env.ResponseCode)
	assert.Len(t, env.ResponseData, 1)
}

func TestSweepEndpoint(t *testing.T) {
	f := newRouterFixture()
	f.reconcile.swept = 4

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/product/cronReverseTimeoutUnreversedTransaction", nil)
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "00", env.ResponseCode)
	data := env.ResponseData.(map[string]any)
	assert.EqualValues(t, 4, data["reversed"])
}

func TestGenerateTokenEndpoint(t *testing.T) {
	f := newRouterFixture()
	f.token.token = "signed.jwt.token"

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/merchant/generateMerchantJwtToken",
		bytes.NewBufferString(`{"merchant_code":"1234567","expiration_minutes":30}`))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "00", env.ResponseCode)
	data := env.ResponseData.(map[string]any)
	assert.Equal(t, "signed.jwt.token", data["token"])
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("healthy", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"}))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	})

	t.Run("degraded", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", HealthCheck(stubChecker{name: "redis", err: errors.New("connection refused")}))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	})
}
