package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Upstream provider codes.
const (
	ProviderMTN          = "MTN"
	ProviderGlo          = "GLO"
	ProviderAirtel       = "AIRTEL"
	Provider9Mobile      = "9MOBILE"
	ProviderPayvantage   = "PAYVANTAGE"
	ProviderCreditswitch = "CREDITSWITCH"
)

// Provider is a logical upstream network or aggregator.
type Provider struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ProviderCode string `json:"provider_code"` // unique
	IsActive     bool   `json:"is_active"`
}

// ProviderAccount holds the credential blob and vending identity used to call
// one upstream. Config is decoded into a provider-specific struct by the
// matching adapter.
type ProviderAccount struct {
	ID                int64           `json:"id"`
	ProviderID        int64           `json:"-"`
	ProviderCode      string          `json:"provider_code"` // joined from the provider row
	AccountName       string          `json:"account_name"`
	VendingSIM        string          `json:"vending_sim"`
	AvailableBalance  decimal.Decimal `json:"available_balance"`
	BalanceAtProvider decimal.Decimal `json:"balance_at_provider"`
	Config            json.RawMessage `json:"-"`
}
