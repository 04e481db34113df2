package ports

import (
	"context"

	"vas-gateway/internal/core/domain"
)

// VendRequest carries everything an adapter needs to push a vend upstream.
type VendRequest struct {
	MerchantRef   string
	ReceiverPhone string
	Amount        string // decimal string, two-digit fraction
	ProductCode   string
	DataCode      string // provider-specific plan code, data vends only
	TariffTypeID  string // MTN tariff selector, defaults to "1"
}

// NormalizedResponse is a provider reply folded into the shared code set.
type NormalizedResponse struct {
	ResponseCode     string // two-char normalized code (apperror.Code*)
	ResponseMessage  string
	ProviderRef      string // upstream's own transaction identifier
	ProviderAvailBal string // decimal string, best-effort, "0" when unknown
}

// BalanceResponse is the reply to a provider balance enquiry.
type BalanceResponse struct {
	ResponseCode     string
	ResponseMessage  string
	ProviderAvailBal string
}

// ProviderAdapter is the capability each upstream integration implements.
// Adapters never return errors: transport failures, timeouts and native
// failure codes are all folded into the NormalizedResponse (a timeout is
// PENDING so the coordinator requeries instead of refunding blind).
type ProviderAdapter interface {
	Vend(ctx context.Context, req VendRequest) NormalizedResponse
	Requery(ctx context.Context, merchantRef, productCode string) NormalizedResponse
	GetBalance(ctx context.Context) BalanceResponse
}

// ProviderDispatcher routes a provider account to its adapter and shields the
// caller from adapter panics (converted to normalized failures).
type ProviderDispatcher interface {
	Vend(ctx context.Context, account domain.ProviderAccount, req VendRequest) NormalizedResponse
	Requery(ctx context.Context, account domain.ProviderAccount, merchantRef, productCode string) NormalizedResponse
}
