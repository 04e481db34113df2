package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const defaultCreditswitchURL = "https://portal.creditswitch.com"

type creditswitchConfig struct {
	BaseURL    string `json:"base_url"`
	LoginID    string `json:"login_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// CreditswitchAdapter vends through the CreditSwitch aggregator REST API.
// Requests carry a bcrypt checksum over the pipe-joined request fields.
type CreditswitchAdapter struct {
	cfg     creditswitchConfig
	baseURL string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewCreditswitchAdapter builds a CreditSwitch adapter from a provider account.
func NewCreditswitchAdapter(account domain.ProviderAccount, timeout time.Duration, log zerolog.Logger) (*CreditswitchAdapter, error) {
	var cfg creditswitchConfig
	if err := decodeConfig(account.Config, &cfg); err != nil {
		return nil, fmt.Errorf("decode creditswitch config: %w", err)
	}
	return &CreditswitchAdapter{
		cfg:     cfg,
		baseURL: orDefault(cfg.BaseURL, defaultCreditswitchURL),
		timeout: timeout,
		client:  newHTTPClient(timeout, true),
		log:     log.With().Str("provider", domain.ProviderCreditswitch).Logger(),
	}, nil
}

type creditswitchReply struct {
	StatusCode        string `json:"statusCode"`
	StatusDescription string `json:"statusDescription"`
	TranxReference    string `json:"tranxReference"`
	Balance           string `json:"balance"`
}

// serviceID resolves the CreditSwitch service matrix from a product code.
func serviceID(productCode string) string {
	data := strings.Contains(productCode, "DATA")
	switch {
	case strings.Contains(productCode, "MTN"):
		if data {
			return "D04D"
		}
		return "A04E"
	case strings.Contains(productCode, "GLO"):
		if data {
			return "D03D"
		}
		return "A03E"
	case strings.Contains(productCode, "AIRTEL"):
		if data {
			return "D01D"
		}
		return "A01E"
	case strings.Contains(productCode, "9MOBILE"):
		if data {
			return "D02D"
		}
		return "A02E"
	default:
		return "A04E"
	}
}

// checksum signs the request fields per the CreditSwitch contract: bcrypt of
// the pipe-joined values, base64 encoded. bcrypt only reads the first 72
// bytes so the input is truncated up front.
func (a *CreditswitchAdapter) checksum(requestID, svcID, amount, recipient string) (string, error) {
	joined := strings.Join([]string{a.cfg.LoginID, requestID, svcID, amount, a.cfg.PrivateKey, recipient}, "|")
	data := []byte(joined)
	if len(data) > 72 {
		data = data[:72]
	}
	hashed, err := bcrypt.GenerateFromPassword(data, bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("creditswitch checksum: %w", err)
	}
	return base64.StdEncoding.EncodeToString(hashed), nil
}

func mapCreditswitch(reply creditswitchReply) ports.NormalizedResponse {
	resp := ports.NormalizedResponse{
		ResponseCode:     reply.StatusCode,
		ResponseMessage:  reply.StatusDescription,
		ProviderRef:      reply.TranxReference,
		ProviderAvailBal: orDefault(reply.Balance, "0"),
	}
	switch reply.StatusCode {
	case "00":
		resp.ResponseCode = apperror.CodeSuccess
		resp.ResponseMessage = msgSuccessful
	case "C001", "C04":
		resp.ResponseCode = apperror.CodePending
		resp.ResponseMessage = "Transaction pending"
	}
	return resp
}

func (a *CreditswitchAdapter) roundTrip(ctx context.Context, method, fullURL, body string) (creditswitchReply, *ports.NormalizedResponse) {
	headers := map[string]string{"Content-Type": "application/json"}
	raw, err := send(ctx, a.client, method, fullURL, body, headers)
	if err != nil {
		a.log.Error().Err(err).Msg("creditswitch request failed")
		failure := transportFailure(err, a.timeout)
		return creditswitchReply{}, &failure
	}

	var reply creditswitchReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		a.log.Error().Err(err).Msg("unparseable creditswitch response")
		failure := ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
		return creditswitchReply{}, &failure
	}
	return reply, nil
}

// Vend pushes an airtime or data top-up through CreditSwitch.
func (a *CreditswitchAdapter) Vend(ctx context.Context, req ports.VendRequest) ports.NormalizedResponse {
	svcID := serviceID(req.ProductCode)
	sum, err := a.checksum(req.MerchantRef, svcID, req.Amount, req.ReceiverPhone)
	if err != nil {
		return ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
	}

	payload := map[string]string{
		"loginId":   a.cfg.LoginID,
		"key":       a.cfg.PublicKey,
		"requestId": req.MerchantRef,
		"serviceId": svcID,
		"amount":    req.Amount,
		"recipient": req.ReceiverPhone,
		"date":      time.Now().Format(time.RFC3339),
		"checksum":  sum,
	}
	path := "/api/v1/mvend"
	if !isAirtimeProduct(req.ProductCode) {
		path = "/api/v1/dvend"
		payload["productId"] = req.DataCode
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
	}

	a.log.Debug().Str("path", path).Str("merchant_ref", req.MerchantRef).Msg("sending vend request")
	reply, failure := a.roundTrip(ctx, http.MethodPost, a.baseURL+path, string(body))
	if failure != nil {
		return *failure
	}
	return mapCreditswitch(reply)
}

// Requery checks the status of an earlier vend by request ID.
func (a *CreditswitchAdapter) Requery(ctx context.Context, merchantRef, productCode string) ports.NormalizedResponse {
	q := url.Values{}
	q.Set("loginId", a.cfg.LoginID)
	q.Set("key", a.cfg.PublicKey)
	q.Set("requestId", merchantRef)
	q.Set("serviceId", serviceID(productCode))

	reply, failure := a.roundTrip(ctx, http.MethodGet, a.baseURL+"/api/v1/requery?"+q.Encode(), "")
	if failure != nil {
		return *failure
	}
	return mapCreditswitch(reply)
}

// GetBalance is not exposed by the CreditSwitch API.
func (a *CreditswitchAdapter) GetBalance(ctx context.Context) ports.BalanceResponse {
	return ports.BalanceResponse{
		ResponseCode:     apperror.CodeProviderFailed,
		ResponseMessage:  "Balance check not available for this provider",
		ProviderAvailBal: "0",
	}
}
