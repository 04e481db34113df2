package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a vend.
// Pending -> Processing -> (Success | Failed), or Pending -> (Success | Failed)
// directly. Success and Failed are terminal.
type TransactionStatus string

const (
	TransactionStatusProcessing TransactionStatus = "Processing"
	TransactionStatusPending    TransactionStatus = "Pending"
	TransactionStatusSuccess    TransactionStatus = "Success"
	TransactionStatusFailed     TransactionStatus = "Failed"
)

// Transaction records one vend attempt. Rows are created on request and never
// deleted; merchant_ref is the caller's idempotence key.
type Transaction struct {
	ID                 int64             `json:"id"`
	MerchantRef        string            `json:"merchant_ref"` // unique
	MerchantID         int64             `json:"-"`
	Amount             decimal.Decimal   `json:"amount"`          // face value vended
	DiscountAmount     decimal.Decimal   `json:"discount_amount"` // what the merchant was debited
	BalanceBefore      decimal.Decimal   `json:"balance_before"`
	BalanceAfter       decimal.Decimal   `json:"balance_after"`
	BeneficiaryAccount string            `json:"beneficiary_account"` // subscriber msisdn
	ProductID          int64             `json:"-"`
	ProductCode        string            `json:"product_code"`
	ProductCategory    string            `json:"product_category"`
	ProviderAccountID  *int64            `json:"-"`
	Description        string            `json:"description"`
	Status             TransactionStatus `json:"status"`
	IsReverse          bool              `json:"is_reverse"`
	ReversedAt         *time.Time        `json:"reversed_at,omitempty"`
	ProviderRef        *string           `json:"provider_ref,omitempty"`
	ProviderDesc       *string           `json:"provider_desc,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          *time.Time        `json:"updated_at,omitempty"`
}

// IsTerminal reports whether the transaction reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}

// Reconcilable reports whether a requery or sweep may still act on this row.
func (t *Transaction) Reconcilable() bool {
	return t.Status == TransactionStatusPending || t.Status == TransactionStatusProcessing
}
