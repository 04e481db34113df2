package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vas-gateway/internal/core/domain"
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
	calls    int
}

func (s *stubMerchantRepo) GetByCode(ctx context.Context, merchantCode string) (*domain.Merchant, error) {
	return s.merchant, nil
}

func (s *stubMerchantRepo) GetByCodeAndKey(ctx context.Context, merchantCode, apiKey string) (*domain.Merchant, error) {
	s.calls++
	if s.merchant == nil || s.merchant.MerchantCode != merchantCode || s.merchant.APIKey != apiKey {
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

type stubCache struct {
	store map[string][]byte
}

func newStubCache() *stubCache { return &stubCache{store: make(map[string][]byte)} }

func (s *stubCache) Get(ctx context.Context, key string) ([]byte, error) {
	return s.store[key], nil
}

func (s *stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.store[key] = value
	return nil
}

func (s *stubCache) Delete(ctx context.Context, key string) error {
	delete(s.store, key)
	return nil
}

func activeMerchant() *domain.Merchant {
	return &domain.Merchant{
		ID:           7,
		MerchantCode: "1234567",
		APIKey:       "key-1",
		APISecret:    "secret-1",
		IsActive:     true,
	}
}

func authTestRouter(repo *stubMerchantRepo, cache *stubCache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/protected", HMACAuth(repo, cache, zerolog.Nop()), func(c *gin.Context) {
		id, _ := MerchantID(c)
		c.JSON(http.StatusOK, gin.H{"merchant_id": id})
	})
	return r
}

func signedRequest(t *testing.T, merchant *domain.Merchant, mutate func(*http.Request)) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.RemoteAddr = "10.0.0.5:4040"
	ts := time.Now().UTC().Format(time.RFC3339)
	req.Header.Set(HeaderMerchantCode, merchant.MerchantCode)
	req.Header.Set(HeaderAPIKey, merchant.APIKey)
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, Signature(merchant.APISecret, ts, merchant.APIKey))
	if mutate != nil {
		mutate(req)
	}
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHMACAuth_ValidSignature(t *testing.T) {
	repo := &stubMerchantRepo{merchant: activeMerchant()}
	r := authTestRouter(repo, newStubCache())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, repo.merchant, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"merchant_id":7`)
}

func TestHMACAuth_MissingHeaders(t *testing.T) {
	r := authTestRouter(&stubMerchantRepo{merchant: activeMerchant()}, newStubCache())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "07", decodeEnvelope(t, w).ResponseCode)
}

func TestHMACAuth_StaleTimestamp(t *testing.T) {
	repo := &stubMerchantRepo{merchant: activeMerchant()}
	r := authTestRouter(repo, newStubCache())

	w := httptest.NewRecorder()
	req := signedRequest(t, repo.merchant, func(req *http.Request) {
		old := time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC3339)
		req.Header.Set(HeaderTimestamp, old)
		req.Header.Set(HeaderSignature, Signature(repo.merchant.APISecret, old, repo.merchant.APIKey))
	})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "07", env.ResponseCode)
	assert.Equal(t, "Request has expired", env.ResponseMessage)
}

func TestHMACAuth_TimestampFormats(t *testing.T) {
	repo := &stubMerchantRepo{merchant: activeMerchant()}
	r := authTestRouter(repo, newStubCache())

	// Trailing Z, naive (implied UTC), fractional seconds, explicit offset.
	now := time.Now().UTC()
	accepted := []string{
		now.Format(time.RFC3339),
		now.Format("2006-01-02T15:04:05"),
		now.Format("2006-01-02T15:04:05.000000"),
		now.Format("2006-01-02T15:04:05-07:00"),
	}
	for _, ts := range accepted {
		w := httptest.NewRecorder()
		req := signedRequest(t, repo.merchant, func(req *http.Request) {
			req.Header.Set(HeaderTimestamp, ts)
			req.Header.Set(HeaderSignature, Signature(repo.merchant.APISecret, ts, repo.merchant.APIKey))
		})
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "timestamp %q", ts)
	}

	w := httptest.NewRecorder()
	req := signedRequest(t, repo.merchant, func(req *http.Request) {
		req.Header.Set(HeaderTimestamp, "1735689600")
		req.Header.Set(HeaderSignature, Signature(repo.merchant.APISecret, "1735689600", repo.merchant.APIKey))
	})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Request has expired", decodeEnvelope(t, w).ResponseMessage)
}

func TestHMACAuth_BadSignature(t *testing.T) {
	repo := &stubMerchantRepo{merchant: activeMerchant()}
	r := authTestRouter(repo, newStubCache())

	w := httptest.NewRecorder()
	req := signedRequest(t, repo.merchant, func(req *http.Request) {
		req.Header.Set(HeaderSignature, "bm90LXRoZS1zaWduYXR1cmU=")
	})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "07", env.ResponseCode)
	assert.Equal(t, "Invalid signature", env.ResponseMessage)
}

func TestHMACAuth_UnknownMerchant(t *testing.T) {
	r := authTestRouter(&stubMerchantRepo{}, newStubCache())

	w := httptest.NewRecorder()
	req := signedRequest(t, activeMerchant(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "07", decodeEnvelope(t, w).ResponseCode)
}

func TestHMACAuth_InactiveMerchant(t *testing.T) {
	m := activeMerchant()
	m.IsActive = false
	// GetByCodeAndKey filters inactive merchants at the repository.
	r := authTestRouter(&stubMerchantRepo{}, newStubCache())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, m, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHMACAuth_IPAllowlist(t *testing.T) {
	m := activeMerchant()
	m.APIAccessIPs = "203.0.113.9, 203.0.113.10"
	repo := &stubMerchantRepo{merchant: m}
	r := authTestRouter(repo, newStubCache())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, m, nil))
	env := decodeEnvelope(t, w)
	assert.Equal(t, "07", env.ResponseCode)
	assert.Equal(t, "Unauthorized IP", env.ResponseMessage)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, m, func(req *http.Request) {
		req.RemoteAddr = "203.0.113.10:5050"
	}))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHMACAuth_CachesMerchantIdentity(t *testing.T) {
	repo := &stubMerchantRepo{merchant: activeMerchant()}
	cache := newStubCache()
	r := authTestRouter(repo, cache)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, signedRequest(t, repo.merchant, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 1, repo.calls)
}

func TestHMACAuth_RotatedKeyBypassesCache(t *testing.T) {
	repo := &stubMerchantRepo{merchant: activeMerchant()}
	cache := newStubCache()
	r := authTestRouter(repo, cache)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, repo.merchant, nil))
	require.Equal(t, http.StatusOK, w.Code)

	// Rotate the key; the cached entry no longer matches and the fresh row
	// must be fetched.
	repo.merchant.APIKey = "key-2"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, repo.merchant, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, repo.calls)
}
