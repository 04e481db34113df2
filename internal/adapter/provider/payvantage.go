package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const defaultPayvantageURL = "https://vend-prod.payvantageapi.com"

type payvantageConfig struct {
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	ClientID string `json:"client_id"`
}

// PayvantageAdapter vends through the Payvantage aggregator REST API. It
// covers every network, so the target is derived from the product code.
type PayvantageAdapter struct {
	cfg     payvantageConfig
	baseURL string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewPayvantageAdapter builds a Payvantage adapter from a provider account.
func NewPayvantageAdapter(account domain.ProviderAccount, timeout time.Duration, log zerolog.Logger) (*PayvantageAdapter, error) {
	var cfg payvantageConfig
	if err := decodeConfig(account.Config, &cfg); err != nil {
		return nil, fmt.Errorf("decode payvantage config: %w", err)
	}
	return &PayvantageAdapter{
		cfg:     cfg,
		baseURL: orDefault(cfg.BaseURL, defaultPayvantageURL),
		timeout: timeout,
		client:  newHTTPClient(timeout, true),
		log:     log.With().Str("provider", domain.ProviderPayvantage).Logger(),
	}, nil
}

type payvantageReply struct {
	StatusCode string `json:"status_code"`
	Message    string `json:"message"`
	Reference  string `json:"reference"`
	Result     struct {
		StatusCode string `json:"status_code"`
	} `json:"result"`
}

// networkFromProductCode maps a product code to Payvantage's network name.
func networkFromProductCode(productCode string) string {
	switch {
	case strings.Contains(productCode, "MTN"):
		return "MTN"
	case strings.Contains(productCode, "GLO"):
		return "GLO"
	case strings.Contains(productCode, "AIRTEL"):
		return "AIRTEL"
	case strings.Contains(productCode, "9MOBILE"):
		return "9Mobile"
	default:
		return "MTN"
	}
}

func isAirtimeProduct(productCode string) bool {
	return strings.Contains(productCode, "VTU") || strings.Contains(productCode, "AIRTIME")
}

func (a *PayvantageAdapter) headers() map[string]string {
	return map[string]string{
		"x-api-key":    a.cfg.APIKey,
		"client-id":    a.cfg.ClientID,
		"Content-Type": "application/json",
	}
}

func (a *PayvantageAdapter) postJSON(ctx context.Context, path string, payload any) (payvantageReply, *ports.NormalizedResponse) {
	body, err := json.Marshal(payload)
	if err != nil {
		failure := ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
		return payvantageReply{}, &failure
	}

	raw, err := send(ctx, a.client, http.MethodPost, a.baseURL+path, string(body), a.headers())
	if err != nil {
		a.log.Error().Err(err).Str("path", path).Msg("payvantage request failed")
		failure := transportFailure(err, a.timeout)
		return payvantageReply{}, &failure
	}

	var reply payvantageReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		a.log.Error().Err(err).Str("path", path).Msg("unparseable payvantage response")
		failure := ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
		return payvantageReply{}, &failure
	}
	return reply, nil
}

// Vend pushes an airtime or data top-up through Payvantage.
func (a *PayvantageAdapter) Vend(ctx context.Context, req ports.VendRequest) ports.NormalizedResponse {
	var path string
	var payload any
	if isAirtimeProduct(req.ProductCode) {
		path = "/service/api/single_airtime_direct_vending"
		payload = map[string]string{
			"amount":         req.Amount,
			"network":        networkFromProductCode(req.ProductCode),
			"phonenumber":    req.ReceiverPhone,
			"transaction_id": req.MerchantRef,
		}
	} else {
		path = "/service/api/single_data_direct_vending"
		payload = map[string]string{
			"plan_code":      req.DataCode,
			"phonenumber":    req.ReceiverPhone,
			"transaction_id": req.MerchantRef,
		}
	}

	a.log.Debug().Str("path", path).Str("merchant_ref", req.MerchantRef).Msg("sending vend request")
	reply, failure := a.postJSON(ctx, path, payload)
	if failure != nil {
		return *failure
	}

	resp := ports.NormalizedResponse{
		ResponseCode:     reply.StatusCode,
		ResponseMessage:  reply.Message,
		ProviderRef:      reply.Reference,
		ProviderAvailBal: "0",
	}
	switch reply.StatusCode {
	case "200":
		resp.ResponseCode = apperror.CodeSuccess
		resp.ResponseMessage = msgSuccessful
	case "501":
		resp.ResponseCode = apperror.CodePending
		resp.ResponseMessage = msgPending
	}
	return resp
}

// Requery checks the status of an earlier vend by transaction ID.
func (a *PayvantageAdapter) Requery(ctx context.Context, merchantRef, productCode string) ports.NormalizedResponse {
	serviceCode := "200"
	if isAirtimeProduct(productCode) {
		serviceCode = "100"
	}
	payload := map[string]string{
		"service_code":   serviceCode,
		"transaction_id": merchantRef,
	}

	reply, failure := a.postJSON(ctx, "/service/api/check_transaction_status", payload)
	if failure != nil {
		return *failure
	}

	if reply.StatusCode == "200" && reply.Result.StatusCode == "200" {
		return ports.NormalizedResponse{
			ResponseCode:     apperror.CodeSuccess,
			ResponseMessage:  msgSuccessful,
			ProviderRef:      merchantRef,
			ProviderAvailBal: "0",
		}
	}
	return ports.NormalizedResponse{
		ResponseCode:     apperror.CodeTxnNotFound,
		ResponseMessage:  orDefault(reply.Message, "Transaction not found"),
		ProviderRef:      merchantRef,
		ProviderAvailBal: "0",
	}
}

// GetBalance is not exposed by the Payvantage API.
func (a *PayvantageAdapter) GetBalance(ctx context.Context) ports.BalanceResponse {
	return ports.BalanceResponse{
		ResponseCode:     apperror.CodeProviderFailed,
		ResponseMessage:  "Balance check not available for this provider",
		ProviderAvailBal: "0",
	}
}
