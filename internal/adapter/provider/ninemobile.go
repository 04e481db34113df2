package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const default9MobileURL = "https://10.158.8.33:9090/EVC/SinglePointFulfilment/EVCPinlessInterfaceEndpoint"

type nineMobileConfig struct {
	URL       string `json:"url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	AuthKey   string `json:"auth_key"`
	AuthToken string `json:"auth_token"`
	VendSIM   string `json:"vend_sim"`
	VerifySSL bool   `json:"verify_ssl"`
}

// NineMobileAdapter vends through the 9mobile EVC pinless fulfilment service
// (SOAP). Amounts go upstream in kobo. No requery or balance endpoint.
type NineMobileAdapter struct {
	cfg     nineMobileConfig
	url     string
	vendSIM string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewNineMobileAdapter builds a 9mobile adapter from a provider account.
func NewNineMobileAdapter(account domain.ProviderAccount, timeout time.Duration, log zerolog.Logger) (*NineMobileAdapter, error) {
	var cfg nineMobileConfig
	if err := decodeConfig(account.Config, &cfg); err != nil {
		return nil, fmt.Errorf("decode 9mobile config: %w", err)
	}
	return &NineMobileAdapter{
		cfg:     cfg,
		url:     orDefault(cfg.URL, default9MobileURL),
		vendSIM: orDefault(cfg.VendSIM, account.VendingSIM),
		timeout: timeout,
		client:  newHTTPClient(timeout, cfg.VerifySSL),
		log:     log.With().Str("provider", domain.Provider9Mobile).Logger(),
	}, nil
}

type nineMobileEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Data struct {
			Result struct {
				StatusCode       string `xml:"statusCode"`
				ErrorDescription string `xml:"errorDescription"`
				InstanceID       string `xml:"instanceId"`
			} `xml:"result"`
		} `xml:"SDF_Data"`
	} `xml:"Body"`
}

// amountToKobo converts a naira decimal string to whole kobo.
func amountToKobo(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "0"
	}
	return d.Mul(decimal.NewFromInt(100)).Truncate(0).String()
}

// Vend pushes an airtime or data top-up to 9mobile.
func (a *NineMobileAdapter) Vend(ctx context.Context, req ports.VendRequest) ports.NormalizedResponse {
	rechargeType := "991" // bundle recharge
	if req.DataCode == "" {
		rechargeType = "001"
	}

	payload := fmt.Sprintf(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:com="http://sdf.cellc.net/commonDataModel"><soapenv:Header/><soapenv:Body><SDF_Data xmlns="http://sdf.cellc.net/commonDataModel" xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><header><processTypeID>7002</processTypeID><externalReference>%s</externalReference><sourceID>%s</sourceID><username>%s</username><password>%s</password><processFlag>1</processFlag></header><parameters><parameter name="RechargeType">%s</parameter><parameter name="MSISDN">%s</parameter><parameter name="Amount">%s</parameter><parameter name="Channel_ID">2ENG0011</parameter></parameters></SDF_Data></soapenv:Body></soapenv:Envelope>`,
		generateSequence(), a.vendSIM, a.cfg.Username, a.cfg.Password,
		rechargeType, req.ReceiverPhone, amountToKobo(req.Amount))

	headers := map[string]string{
		"Content-Type":  `text/xml;charset="utf-8"`,
		"Accept":        "text/xml",
		"Cache-Control": "no-cache",
		"Pragma":        "no-cache",
		"SOAPAction":    `"http://sdf.cellc.net/process"`,
		"key":           a.cfg.AuthKey,
		"token":         a.cfg.AuthToken,
	}

	a.log.Debug().Str("url", a.url).Str("merchant_ref", req.MerchantRef).Msg("sending vend request")
	raw, err := send(ctx, a.client, http.MethodPost, a.url, payload, headers)
	if err != nil {
		a.log.Error().Err(err).Str("merchant_ref", req.MerchantRef).Msg("vend request failed")
		return transportFailure(err, a.timeout)
	}

	var env nineMobileEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		a.log.Error().Err(err).Str("merchant_ref", req.MerchantRef).Msg("unparseable vend response")
		return ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
	}

	result := env.Body.Data.Result
	resp := ports.NormalizedResponse{
		ResponseCode:     result.StatusCode,
		ResponseMessage:  result.ErrorDescription,
		ProviderRef:      result.InstanceID,
		ProviderAvailBal: "0",
	}
	switch {
	case result.StatusCode == "0":
		resp.ResponseCode = apperror.CodeSuccess
		resp.ResponseMessage = msgSuccessful
	case result.StatusCode == "2" && !strings.Contains(result.ErrorDescription, "Insufficient Funds"):
		resp.ResponseCode = apperror.CodeInvalidMSISDN
		resp.ResponseMessage = msgInvalidMSISDN
	}
	return resp
}

// Requery is not offered by the EVC fulfilment service.
func (a *NineMobileAdapter) Requery(ctx context.Context, merchantRef, productCode string) ports.NormalizedResponse {
	return notImplemented()
}

// GetBalance is not offered by the EVC fulfilment service.
func (a *NineMobileAdapter) GetBalance(ctx context.Context) ports.BalanceResponse {
	return ports.BalanceResponse{
		ResponseCode:     apperror.CodeNotImplemented,
		ResponseMessage:  msgNotImplemented,
		ProviderAvailBal: "0",
	}
}
