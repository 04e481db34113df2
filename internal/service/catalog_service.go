package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// Cache TTLs per key family. Reference data churns slowly; merchant-facing
// lists refresh faster than routing-critical lookups.
const (
	categoriesTTL    = 2 * time.Hour
	productTTL       = time.Hour
	productsByCatTTL = 30 * time.Minute
	dataBundlesTTL   = time.Hour
	dataPackageTTL   = time.Hour
)

// CatalogServiceImpl implements ports.CatalogService as a read-through cache
// over the catalog repository. Cache failures degrade silently to the
// database.
type CatalogServiceImpl struct {
	repo        ports.CatalogRepository
	accountRepo ports.ProviderAccountRepository
	cache       ports.KVCache
	log         zerolog.Logger
}

// NewCatalogService creates a new CatalogServiceImpl.
func NewCatalogService(repo ports.CatalogRepository, accountRepo ports.ProviderAccountRepository, cache ports.KVCache, log zerolog.Logger) *CatalogServiceImpl {
	return &CatalogServiceImpl{repo: repo, accountRepo: accountRepo, cache: cache, log: log}
}

// cachedGet loads key into dst. Returns false on miss, cache error or
// unmarshal failure; the caller falls through to the repository.
func (s *CatalogServiceImpl) cachedGet(ctx context.Context, key string, dst any) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed, falling through to db")
		return false
	}
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("stale cache entry, falling through to db")
		return false
	}
	return true
}

func (s *CatalogServiceImpl) cachedSet(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// ActiveCategories returns the active product categories.
func (s *CatalogServiceImpl) ActiveCategories(ctx context.Context) ([]domain.ProductCategory, error) {
	var cats []domain.ProductCategory
	if s.cachedGet(ctx, ports.KeyProductCategories, &cats) {
		return cats, nil
	}

	cats, err := s.repo.ActiveCategories(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeProcessingError, "Unable to retrieve categories, please try again", http.StatusInternalServerError, err)
	}
	if len(cats) == 0 {
		return nil, apperror.ErrNoDataFound("No record found")
	}
	s.cachedSet(ctx, ports.KeyProductCategories, cats, categoriesTTL)
	return cats, nil
}

// ProductsByCategory returns the active products under a category.
func (s *CatalogServiceImpl) ProductsByCategory(ctx context.Context, categoryCode string) ([]domain.Product, error) {
	key := ports.KeyProductsByCategory(categoryCode)
	var products []domain.Product
	if s.cachedGet(ctx, key, &products) {
		return products, nil
	}

	products, err := s.repo.ProductsByCategory(ctx, categoryCode)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeProcessingError, "Unable to retrieve products, please try again", http.StatusInternalServerError, err)
	}
	if len(products) == 0 {
		return nil, apperror.ErrNoDataFound("No products found")
	}
	s.cachedSet(ctx, key, products, productsByCatTTL)
	return products, nil
}

// ProductByCode resolves an active product, or nil when absent.
func (s *CatalogServiceImpl) ProductByCode(ctx context.Context, productCode string) (*domain.Product, error) {
	key := ports.KeyProduct(productCode)
	var p domain.Product
	if s.cachedGet(ctx, key, &p) {
		return &p, nil
	}

	product, err := s.repo.ProductByCode(ctx, productCode)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load product %s: %w", productCode, err))
	}
	if product == nil {
		return nil, nil
	}
	s.cachedSet(ctx, key, product, productTTL)
	return product, nil
}

// DataBundles returns the active bundles under a data product. The cache key
// carries the provider the product currently routes through, so a re-route
// never serves the old provider's bundle list for the full TTL.
func (s *CatalogServiceImpl) DataBundles(ctx context.Context, productCode string) ([]domain.DataPackage, error) {
	key := ports.KeyDataBundles(productCode, s.routingProvider(ctx, productCode))
	var bundles []domain.DataPackage
	if s.cachedGet(ctx, key, &bundles) {
		return bundles, nil
	}

	bundles, err := s.repo.DataBundles(ctx, productCode)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeProcessingError, "Unable to retrieve data bundles, please try again", http.StatusInternalServerError, err)
	}
	if len(bundles) == 0 {
		return nil, apperror.ErrNoDataFound("No data bundle found")
	}
	s.cachedSet(ctx, key, bundles, dataBundlesTTL)
	return bundles, nil
}

// routingProvider resolves the provider code behind the product's preferred
// account. An unresolvable route keys under the empty provider segment.
func (s *CatalogServiceImpl) routingProvider(ctx context.Context, productCode string) string {
	product, err := s.ProductByCode(ctx, productCode)
	if err != nil || product == nil || product.PreferredProviderAccountID == nil {
		return ""
	}
	account, err := s.accountRepo.GetByID(ctx, *product.PreferredProviderAccountID)
	if err != nil || account == nil {
		return ""
	}
	return account.ProviderCode
}

// cachedDataPackage is the cache shape for a bundle resolved per provider.
type cachedDataPackage struct {
	Bundle   *domain.DataPackage `json:"bundle"`
	PlanCode string              `json:"plan_code"`
}

// DataPackage resolves a bundle plus the plan code for the routing provider.
// Returns (nil, "", nil) when no active bundle matches.
func (s *CatalogServiceImpl) DataPackage(ctx context.Context, productCode, dataCode, providerCode string) (*domain.DataPackage, string, error) {
	key := ports.KeyDataPackage(productCode, dataCode, providerCode)
	var entry cachedDataPackage
	if s.cachedGet(ctx, key, &entry) && entry.Bundle != nil {
		return entry.Bundle, entry.PlanCode, nil
	}

	bundle, err := s.repo.DataPackage(ctx, productCode, dataCode)
	if err != nil {
		return nil, "", apperror.InternalError(fmt.Errorf("load data package %s/%s: %w", productCode, dataCode, err))
	}
	if bundle == nil {
		return nil, "", nil
	}

	planCode, err := s.repo.ProviderPlanCode(ctx, bundle.ID, providerCode)
	if err != nil {
		return nil, "", apperror.InternalError(fmt.Errorf("load provider plan code: %w", err))
	}

	s.cachedSet(ctx, key, cachedDataPackage{Bundle: bundle, PlanCode: planCode}, dataPackageTTL)
	return bundle, planCode, nil
}
