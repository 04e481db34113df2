package provider

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const defaultMTNURL = "https://ershostif.mtn.ng/axis2/services/HostIFService"

type mtnConfig struct {
	URL       string `json:"url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	VendSIM   string `json:"vend_sim"`
	VerifySSL bool   `json:"verify_ssl"`
}

// MTNAdapter vends through the MTN Nigeria ERS host interface (SOAP over
// basic auth). The upstream has no requery or balance endpoint.
type MTNAdapter struct {
	cfg     mtnConfig
	url     string
	vendSIM string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewMTNAdapter builds an MTN adapter from a provider account.
func NewMTNAdapter(account domain.ProviderAccount, timeout time.Duration, log zerolog.Logger) (*MTNAdapter, error) {
	var cfg mtnConfig
	if err := decodeConfig(account.Config, &cfg); err != nil {
		return nil, fmt.Errorf("decode mtn config: %w", err)
	}
	return &MTNAdapter{
		cfg:     cfg,
		url:     orDefault(cfg.URL, defaultMTNURL),
		vendSIM: orDefault(cfg.VendSIM, account.VendingSIM),
		timeout: timeout,
		client:  newHTTPClient(timeout, cfg.VerifySSL),
		log:     log.With().Str("provider", domain.ProviderMTN).Logger(),
	}, nil
}

type mtnVendEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		VendResponse struct {
			StatusID        string `xml:"statusId"`
			ResponseMessage string `xml:"responseMessage"`
			TxRefID         string `xml:"txRefId"`
			OrigBalance     string `xml:"origBalance"`
		} `xml:"vendResponse"`
	} `xml:"Body"`
}

// Vend pushes an airtime or data top-up to MTN.
func (a *MTNAdapter) Vend(ctx context.Context, req ports.VendRequest) ports.NormalizedResponse {
	payload := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="no"?><soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsd="http://hostif.vtm.prism.co.za/xsd"><soapenv:Header/><soapenv:Body><xsd:vend><xsd:origMsisdn>%s</xsd:origMsisdn><xsd:destMsisdn>%s</xsd:destMsisdn><xsd:amount>%s</xsd:amount><xsd:sequence>%s</xsd:sequence><xsd:tariffTypeId>%s</xsd:tariffTypeId><xsd:serviceproviderId>1</xsd:serviceproviderId></xsd:vend></soapenv:Body></soapenv:Envelope>`,
		a.vendSIM, req.ReceiverPhone, req.Amount, generateSequence(), orDefault(req.TariffTypeID, "1"))

	headers := map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(a.cfg.Username+":"+a.cfg.Password)),
		"Content-Type":  "application/xml",
		"SoapAction":    "urn:queryTx",
	}

	a.log.Debug().Str("url", a.url).Str("merchant_ref", req.MerchantRef).Msg("sending vend request")
	raw, err := send(ctx, a.client, http.MethodPost, a.url, payload, headers)
	if err != nil {
		a.log.Error().Err(err).Str("merchant_ref", req.MerchantRef).Msg("vend request failed")
		return transportFailure(err, a.timeout)
	}

	var env mtnVendEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		a.log.Error().Err(err).Str("merchant_ref", req.MerchantRef).Msg("unparseable vend response")
		return ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
	}

	body := env.Body.VendResponse
	resp := ports.NormalizedResponse{
		ProviderRef:      body.TxRefID,
		ProviderAvailBal: orDefault(body.OrigBalance, "0"),
	}
	switch body.StatusID {
	case "0":
		resp.ResponseCode = apperror.CodeSuccess
		resp.ResponseMessage = msgSuccessful
	case "1004", "202": // invalid destination msisdn
		resp.ResponseCode = apperror.CodeInvalidMSISDN
		resp.ResponseMessage = msgInvalidMSISDN
	default:
		resp.ResponseCode = apperror.CodeProviderFailed
		resp.ResponseMessage = body.ResponseMessage
	}
	return resp
}

// Requery is not offered by the MTN host interface.
func (a *MTNAdapter) Requery(ctx context.Context, merchantRef, productCode string) ports.NormalizedResponse {
	return notImplemented()
}

// GetBalance is not offered by the MTN host interface.
func (a *MTNAdapter) GetBalance(ctx context.Context) ports.BalanceResponse {
	return ports.BalanceResponse{
		ResponseCode:     apperror.CodeNotImplemented,
		ResponseMessage:  msgNotImplemented,
		ProviderAvailBal: "0",
	}
}
