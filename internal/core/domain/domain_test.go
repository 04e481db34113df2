package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeMSISDN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"08031234567", "08031234567"},
		{"2348031234567", "08031234567"},
		{"+2348031234567", "08031234567"},
		{" 08031234567 ", "08031234567"},
		{"234", "234"},
		{"07061234567", "07061234567"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeMSISDN(tc.in), "input %q", tc.in)
	}
}

func TestValidMerchantRef(t *testing.T) {
	assert.True(t, ValidMerchantRef("REF-2024-001"))
	assert.True(t, ValidMerchantRef("abc123"))
	assert.False(t, ValidMerchantRef(""))
	assert.False(t, ValidMerchantRef("REF 001"))
	assert.False(t, ValidMerchantRef("ref;drop"))
	assert.False(t, ValidMerchantRef("ref_001"))
}

func TestDiscountedAmount(t *testing.T) {
	amount := decimal.NewFromInt(100)

	none := Merchant{}
	assert.True(t, none.DiscountedAmount(amount).Equal(amount))

	fixed := Merchant{DiscountType: DiscountTypeFixed, DiscountValue: decimal.NewFromInt(5)}
	assert.True(t, fixed.DiscountedAmount(amount).Equal(decimal.NewFromInt(95)))

	pct := Merchant{DiscountType: DiscountTypePercentage, DiscountValue: decimal.NewFromFloat(2.5)}
	assert.True(t, pct.DiscountedAmount(amount).Equal(decimal.NewFromFloat(97.5)))
}

func TestAllowsIP(t *testing.T) {
	open := Merchant{}
	assert.True(t, open.AllowsIP("10.0.0.1"))

	restricted := Merchant{APIAccessIPs: "203.0.113.9, 203.0.113.10"}
	assert.True(t, restricted.AllowsIP("203.0.113.9"))
	assert.True(t, restricted.AllowsIP("203.0.113.10"))
	assert.False(t, restricted.AllowsIP("203.0.113.11"))
}

func TestTransactionStateChecks(t *testing.T) {
	for _, tc := range []struct {
		status       TransactionStatus
		terminal     bool
		reconcilable bool
	}{
		{TransactionStatusPending, false, true},
		{TransactionStatusProcessing, false, true},
		{TransactionStatusSuccess, true, false},
		{TransactionStatusFailed, true, false},
	} {
		txn := Transaction{Status: tc.status}
		assert.Equal(t, tc.terminal, txn.IsTerminal(), "status %s", tc.status)
		assert.Equal(t, tc.reconcilable, txn.Reconcilable(), "status %s", tc.status)
	}
}
