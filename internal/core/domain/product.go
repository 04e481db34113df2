package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category codes. Vend endpoints enforce that the resolved product carries
// the category they serve.
const (
	CategoryAirtime = "AIRTIME"
	CategoryData    = "DATA"
)

// ProductCategory groups products (airtime vs data bundles).
type ProductCategory struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CategoryCode string `json:"category_code"`
	Description  string `json:"description"`
	IsActive     bool   `json:"is_active"`
}

// Product is a vendable item routed to a provider account.
type Product struct {
	ID                         int64  `json:"id"`
	ProductName                string `json:"product_name"`
	ProductCode                string `json:"product_code"` // unique, e.g. MTNVTU
	Description                string `json:"description"`
	CategoryCode               string `json:"category_code"`
	PreferredProviderAccountID *int64 `json:"-"`
	BackupProviderAccountID    *int64 `json:"-"`
	PreferredProviderCode      string `json:"provider_code"` // joined from the preferred account
	IsActive                   bool   `json:"is_active"`
}

// DataPackage is a purchasable data bundle under a product.
type DataPackage struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"-"`
	ProductCode string          `json:"product_code"`
	DataCode    string          `json:"data_code"` // unique
	TariffID    string          `json:"tariff_id"`
	Network     string          `json:"network"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Duration    string          `json:"duration"`
	Value       string          `json:"value"`
	PlanName    string          `json:"plan_name"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DataPackageProvider carries the provider-specific plan code dispatched for
// a bundle when routed through a given provider.
type DataPackageProvider struct {
	ID            int64  `json:"id"`
	DataPackageID int64  `json:"-"`
	ProviderID    int64  `json:"-"`
	ProviderCode  string `json:"provider_code"` // the plan code at the provider
	IsActive      bool   `json:"is_active"`
}
