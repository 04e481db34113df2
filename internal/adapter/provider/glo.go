package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const defaultGloURL = "http://41.203.65.10:8913/topupservice/service?wsdl"

type gloConfig struct {
	URL        string `json:"url"`
	UserID     string `json:"user_id"`
	Password   string `json:"password"`
	ResellerID string `json:"reseller_id"`
	ClientID   string `json:"client_id"`
	VendSIM    string `json:"vend_sim"`
	VerifySSL  bool   `json:"verify_ssl"`
}

// GloAdapter vends through the Glo Seamless ERS requestTopup service (SOAP).
// The upstream has no requery or balance endpoint.
type GloAdapter struct {
	cfg     gloConfig
	url     string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewGloAdapter builds a Glo adapter from a provider account.
func NewGloAdapter(account domain.ProviderAccount, timeout time.Duration, log zerolog.Logger) (*GloAdapter, error) {
	var cfg gloConfig
	if err := decodeConfig(account.Config, &cfg); err != nil {
		return nil, fmt.Errorf("decode glo config: %w", err)
	}
	return &GloAdapter{
		cfg:     cfg,
		url:     orDefault(cfg.URL, defaultGloURL),
		timeout: timeout,
		client:  newHTTPClient(timeout, cfg.VerifySSL),
		log:     log.With().Str("provider", domain.ProviderGlo).Logger(),
	}, nil
}

type gloTopupEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		TopupResponse struct {
			Return struct {
				ResultCode        string `xml:"resultCode"`
				ResultDescription string `xml:"resultDescription"`
				ERSReference      string `xml:"ersReference"`
				SenderPrincipal   struct {
					Accounts struct {
						Account struct {
							Balance struct {
								Value string `xml:"value"`
							} `xml:"balance"`
						} `xml:"account"`
					} `xml:"accounts"`
				} `xml:"senderPrincipal"`
			} `xml:"return"`
		} `xml:"requestTopupResponse"`
	} `xml:"Body"`
}

func (a *GloAdapter) vtuPayload(req ports.VendRequest) string {
	return fmt.Sprintf(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ext="http://external.interfaces.ers.seamless.com/"><soapenv:Header/><soapenv:Body><ext:requestTopup><context><channel>WSClient</channel><clientComment>airtime topup</clientComment><clientId>%s</clientId><clientReference>%s</clientReference><clientRequestTimeout>500</clientRequestTimeout><initiatorPrincipalId><id>%s</id><type>RESELLERUSER</type><userId>%s</userId></initiatorPrincipalId><password>%s</password></context><senderPrincipalId><id>%s</id><type>RESELLERUSER</type><userId>%s</userId></senderPrincipalId><topupPrincipalId><id>%s</id><type>SUBSCRIBERMSISDN</type><userId>?</userId></topupPrincipalId><senderAccountSpecifier><accountId>%s</accountId><accountTypeId>RESELLER</accountTypeId></senderAccountSpecifier><topupAccountSpecifier><accountId>%s</accountId><accountTypeId>AIRTIME</accountTypeId></topupAccountSpecifier><productId>TOPUP</productId><amount><currency>NGN</currency><value>%s</value></amount></ext:requestTopup></soapenv:Body></soapenv:Envelope>`,
		a.cfg.ClientID, generateSequence(), a.cfg.ResellerID, a.cfg.UserID, a.cfg.Password,
		a.cfg.ResellerID, a.cfg.UserID, req.ReceiverPhone,
		a.cfg.ResellerID, req.ReceiverPhone, req.Amount)
}

func (a *GloAdapter) dataPayload(req ports.VendRequest) string {
	return fmt.Sprintf(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ext="http://external.interfaces.ers.seamless.com/"><soapenv:Header/><soapenv:Body><ext:requestTopup><context><channel>WSClient</channel><clientComment>data bundle</clientComment><clientId>%s</clientId><prepareOnly>false</prepareOnly><clientReference>%s</clientReference><clientRequestTimeout>500</clientRequestTimeout><initiatorPrincipalId><id>%s</id><type>RESELLERUSER</type><userId>%s</userId></initiatorPrincipalId><password>%s</password><transactionProperties><entry><key>TRANSACTION_TYPE</key><value>PRODUCT_RECHARGE</value></entry></transactionProperties></context><senderPrincipalId><id>%s</id><type>RESELLERUSER</type><userId>%s</userId></senderPrincipalId><topupPrincipalId><id>%s</id><type>SUBSCRIBERMSISDN</type><userId></userId></topupPrincipalId><senderAccountSpecifier><accountId>%s</accountId><accountTypeId>RESELLER</accountTypeId></senderAccountSpecifier><topupAccountSpecifier><accountId>%s</accountId><accountTypeId>DATA_BUNDLE</accountTypeId></topupAccountSpecifier><productId>%s</productId><amount><currency>NGN</currency><value>%s</value></amount></ext:requestTopup></soapenv:Body></soapenv:Envelope>`,
		a.cfg.ClientID, generateSequence(), a.cfg.ResellerID, a.cfg.UserID, a.cfg.Password,
		a.cfg.ResellerID, a.cfg.UserID, req.ReceiverPhone,
		a.cfg.ResellerID, req.ReceiverPhone, req.DataCode, req.Amount)
}

// Vend pushes an airtime or data top-up to Glo.
func (a *GloAdapter) Vend(ctx context.Context, req ports.VendRequest) ports.NormalizedResponse {
	payload := a.dataPayload(req)
	if req.DataCode == "" {
		payload = a.vtuPayload(req)
	}
	headers := map[string]string{"Content-Type": "text/xml"}

	a.log.Debug().Str("url", a.url).Str("merchant_ref", req.MerchantRef).Msg("sending vend request")
	raw, err := send(ctx, a.client, http.MethodPost, a.url, payload, headers)
	if err != nil {
		a.log.Error().Err(err).Str("merchant_ref", req.MerchantRef).Msg("vend request failed")
		return transportFailure(err, a.timeout)
	}

	var env gloTopupEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		a.log.Error().Err(err).Str("merchant_ref", req.MerchantRef).Msg("unparseable vend response")
		return ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
	}

	ret := env.Body.TopupResponse.Return
	resp := ports.NormalizedResponse{
		ResponseCode:     ret.ResultCode,
		ResponseMessage:  ret.ResultDescription,
		ProviderRef:      ret.ERSReference,
		ProviderAvailBal: orDefault(ret.SenderPrincipal.Accounts.Account.Balance.Value, "0"),
	}
	switch ret.ResultCode {
	case "0":
		resp.ResponseCode = apperror.CodeSuccess
		resp.ResponseMessage = msgSuccessful
	case "94": // invalid subscriber msisdn
		resp.ResponseCode = apperror.CodeInvalidMSISDN
		resp.ResponseMessage = msgInvalidMSISDN
	}
	return resp
}

// Requery is not offered by the Glo topup service.
func (a *GloAdapter) Requery(ctx context.Context, merchantRef, productCode string) ports.NormalizedResponse {
	return notImplemented()
}

// GetBalance is not offered by the Glo topup service.
func (a *GloAdapter) GetBalance(ctx context.Context) ports.BalanceResponse {
	return ports.BalanceResponse{
		ResponseCode:     apperror.CodeNotImplemented,
		ResponseMessage:  msgNotImplemented,
		ProviderAvailBal: "0",
	}
}
