package dto

import (
	"vas-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
)

// VendAirtimeRequest is the request body for an airtime vend.
type VendAirtimeRequest struct {
	ProductCode string          `json:"product_code" binding:"required,max=50"`
	PhoneNumber string          `json:"phone_number" binding:"required,msisdn"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	MerchantRef string          `json:"merchant_ref" binding:"required,max=100,merchant_ref"`
}

// VendDataRequest is the request body for a data-bundle vend. The charged
// amount comes from the bundle, so the caller sends none.
type VendDataRequest struct {
	ProductCode string `json:"product_code" binding:"required,max=50"`
	DataCode    string `json:"data_code" binding:"required,max=50"`
	PhoneNumber string `json:"phone_number" binding:"required,msisdn"`
	MerchantRef string `json:"merchant_ref" binding:"required,max=100,merchant_ref"`
}

// RequeryRequest is the request body for a client-side status lookup.
type RequeryRequest struct {
	MerchantRef string `json:"merchant_ref" binding:"required,max=100,merchant_ref"`
}

// GenerateTokenRequest is the request body for merchant token generation.
type GenerateTokenRequest struct {
	MerchantCode      string `json:"merchant_code" binding:"required,len=7"`
	ExpirationMinutes int    `json:"expiration_minutes,omitempty"`
}

// TokenResponse is the response body for a generated token.
type TokenResponse struct {
	Token             string `json:"token"`
	ExpirationMinutes int    `json:"expiration_minutes"`
}

// TransactionResponse is the client-facing view of a transaction.
type TransactionResponse struct {
	MerchantRef    string  `json:"merchant_ref"`
	Amount         string  `json:"amount"`
	DiscountAmount string  `json:"discount_amount"`
	PhoneNumber    string  `json:"phone_number"`
	ProductCode    string  `json:"product_code"`
	Status         string  `json:"status"`
	IsReversed     bool    `json:"is_reversed"`
	ProviderRef    *string `json:"provider_ref,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// FromTransaction converts a domain transaction to its response shape.
func FromTransaction(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		MerchantRef:    t.MerchantRef,
		Amount:         t.Amount.StringFixed(2),
		DiscountAmount: t.DiscountAmount.StringFixed(2),
		PhoneNumber:    t.BeneficiaryAccount,
		ProductCode:    t.ProductCode,
		Status:         string(t.Status),
		IsReversed:     t.IsReverse,
		ProviderRef:    t.ProviderRef,
		CreatedAt:      t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// SweepResponse reports how many rows a timeout sweep reversed.
type SweepResponse struct {
	Reversed int `json:"reversed"`
}
