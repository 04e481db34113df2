package ports

import (
	"context"
	"strconv"
	"time"
)

// Cache key builders. Keys are shared across instances; a change of shape here
// is a breaking change for every running coordinator.
const (
	KeyProductCategories = "product_categories_active"
)

func KeyProduct(productCode string) string {
	return "product:" + productCode
}

func KeyProductsByCategory(categoryCode string) string {
	return "products:category:" + categoryCode
}

func KeyDataBundles(productCode, providerCode string) string {
	return "data_bundles:" + productCode + ":" + providerCode
}

func KeyDataPackage(productCode, dataCode, providerCode string) string {
	return "data_package:" + productCode + ":" + dataCode + ":" + providerCode
}

func KeyMerchantAuth(merchantCode string) string {
	return "merchant_auth:" + merchantCode
}

func KeyRequeryLease(transactionID int64) string {
	return "requery:" + strconv.FormatInt(transactionID, 10)
}

// KVCache is the shared read-through cache. Get returns (nil, nil) on a miss.
// Callers MUST treat every error as a miss and fall through to the database.
type KVCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LeaseStore grants non-blocking TTL leases, used to keep concurrent requery
// workers off the same transaction.
type LeaseStore interface {
	// Acquire returns true when the caller now holds the lease.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
