package provider

import (
	"context"
	"fmt"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// Dispatcher implements ports.ProviderDispatcher. Adapters are built per call
// from the account's config blob, mirroring how accounts can be re-credentialed
// at runtime without a restart.
type Dispatcher struct {
	timeout time.Duration
	log     zerolog.Logger
}

// NewDispatcher creates a provider dispatcher with a shared upstream timeout.
func NewDispatcher(timeout time.Duration, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{timeout: timeout, log: log}
}

func (d *Dispatcher) adapterFor(account domain.ProviderAccount) (ports.ProviderAdapter, error) {
	switch account.ProviderCode {
	case domain.ProviderMTN:
		return NewMTNAdapter(account, d.timeout, d.log)
	case domain.ProviderAirtel:
		return NewAirtelAdapter(account, d.timeout, d.log)
	case domain.ProviderGlo:
		return NewGloAdapter(account, d.timeout, d.log)
	case domain.Provider9Mobile:
		return NewNineMobileAdapter(account, d.timeout, d.log)
	case domain.ProviderPayvantage:
		return NewPayvantageAdapter(account, d.timeout, d.log)
	case domain.ProviderCreditswitch:
		return NewCreditswitchAdapter(account, d.timeout, d.log)
	default:
		return nil, fmt.Errorf("no adapter registered for provider %q", account.ProviderCode)
	}
}

// Vend routes a vend to the adapter for the account's provider. A panicking
// adapter is folded into a normalized failure so the coordinator can still
// reconcile the debit.
func (d *Dispatcher) Vend(ctx context.Context, account domain.ProviderAccount, req ports.VendRequest) (resp ports.NormalizedResponse) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("provider", account.ProviderCode).Msg("adapter panicked during vend")
			resp = ports.NormalizedResponse{
				ResponseCode:     apperror.CodeProviderFailed,
				ResponseMessage:  fmt.Sprintf("provider adapter panic: %v", r),
				ProviderAvailBal: "0",
			}
		}
	}()

	adapter, err := d.adapterFor(account)
	if err != nil {
		return ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
	}
	return adapter.Vend(ctx, req)
}

// Requery routes a status check to the adapter for the account's provider.
func (d *Dispatcher) Requery(ctx context.Context, account domain.ProviderAccount, merchantRef, productCode string) (resp ports.NormalizedResponse) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("provider", account.ProviderCode).Msg("adapter panicked during requery")
			resp = ports.NormalizedResponse{
				ResponseCode:     apperror.CodeProviderFailed,
				ResponseMessage:  fmt.Sprintf("provider adapter panic: %v", r),
				ProviderAvailBal: "0",
			}
		}
	}()

	adapter, err := d.adapterFor(account)
	if err != nil {
		return ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
	}
	return adapter.Requery(ctx, merchantRef, productCode)
}
