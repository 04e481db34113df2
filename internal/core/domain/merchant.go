package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType distinguishes how a merchant settles.
type AccountType string

const (
	AccountTypePrepaid  AccountType = "Prepaid"
	AccountTypePostpaid AccountType = "Postpaid"
)

// Merchant is a reseller with a prepaid balance debited on every vend.
type Merchant struct {
	ID              int64           `json:"id"`
	MerchantCode    string          `json:"merchant_code"` // 7-digit, unique
	BusinessName    string          `json:"business_name"`
	UserID          int64           `json:"-"`
	BalanceBefore   decimal.Decimal `json:"balance_before"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	AccountType     AccountType     `json:"account_type"`
	DailyTranxLimit int             `json:"daily_tranx_limit"`
	TodayTranxCount int             `json:"today_tranx_count"`
	TodayTranxDate  *time.Time      `json:"today_tranx_date,omitempty"`
	APIKey          string          `json:"-"`
	APISecret       string          `json:"-"`
	APIAccessIPs    string          `json:"-"` // comma-separated allowlist, empty = any
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`

	// Populated by the discount aggregate query; zero value means no discount.
	DiscountType  DiscountType    `json:"-"`
	DiscountValue decimal.Decimal `json:"-"`
}

// AllowsIP reports whether ip passes the merchant's allowlist. An empty
// allowlist admits every address.
func (m *Merchant) AllowsIP(ip string) bool {
	if strings.TrimSpace(m.APIAccessIPs) == "" {
		return true
	}
	for _, allowed := range strings.Split(m.APIAccessIPs, ",") {
		if strings.TrimSpace(allowed) == ip {
			return true
		}
	}
	return false
}

// DiscountType is how a merchant discount is expressed.
type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypePercentage DiscountType = "percentage"
)

// DiscountedAmount applies the merchant's discount to amount.
// fixed subtracts the value; percentage subtracts value% of amount.
func (m *Merchant) DiscountedAmount(amount decimal.Decimal) decimal.Decimal {
	switch m.DiscountType {
	case DiscountTypeFixed:
		return amount.Sub(m.DiscountValue)
	case DiscountTypePercentage:
		return amount.Sub(amount.Mul(m.DiscountValue).Div(decimal.NewFromInt(100)))
	default:
		return amount
	}
}

// FundingSource tags the origin of a merchant credit.
type FundingSource string

const (
	FundingSourceAutoReversal   FundingSource = "auto_reversal"
	FundingSourceManualReversal FundingSource = "manual_reversal"
	FundingSourceAdmin          FundingSource = "admin"
)

// MerchantFunding is an append-only audit row for every credit.
type MerchantFunding struct {
	FundingRef    uuid.UUID       `json:"funding_ref"`
	MerchantID    int64           `json:"merchant_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Source        FundingSource   `json:"source"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	IsApproved    bool            `json:"is_approved"`
	IsCredited    bool            `json:"is_credited"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MerchantDiscount is a per-(merchant, product) pricing adjustment.
// Multiple active rows reduce to the one with the maximum value.
type MerchantDiscount struct {
	ID            int64           `json:"id"`
	MerchantID    int64           `json:"merchant_id"`
	ProductID     int64           `json:"product_id"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	IsActive      bool            `json:"is_active"`
}
