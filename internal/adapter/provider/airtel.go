package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// The pretups gateway authenticates through the URL query string, so the full
// receiver URL lives in the account config.
const defaultAirtelURL = "https://pretupsapi.airtel.com.ng:4443/pretups/C2SReceiver"

type airtelConfig struct {
	URL       string `json:"url"`
	LoginID   string `json:"login_id"`
	LoginPIN  string `json:"login_pin"`
	Password  string `json:"password"`
	VendSIM   string `json:"vend_sim"`
	VerifySSL bool   `json:"verify_ssl"`
}

// AirtelAdapter vends through the Airtel pretups C2S gateway (XML command
// protocol).
type AirtelAdapter struct {
	cfg     airtelConfig
	url     string
	vendSIM string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewAirtelAdapter builds an Airtel adapter from a provider account.
func NewAirtelAdapter(account domain.ProviderAccount, timeout time.Duration, log zerolog.Logger) (*AirtelAdapter, error) {
	var cfg airtelConfig
	if err := decodeConfig(account.Config, &cfg); err != nil {
		return nil, fmt.Errorf("decode airtel config: %w", err)
	}
	return &AirtelAdapter{
		cfg:     cfg,
		url:     orDefault(cfg.URL, defaultAirtelURL),
		vendSIM: orDefault(cfg.VendSIM, account.VendingSIM),
		timeout: timeout,
		client:  newHTTPClient(timeout, cfg.VerifySSL),
		log:     log.With().Str("provider", domain.ProviderAirtel).Logger(),
	}, nil
}

type airtelCommand struct {
	XMLName   xml.Name `xml:"COMMAND"`
	TxnStatus string   `xml:"TXNSTATUS"`
	Message   string   `xml:"MESSAGE"`
	TxnID     string   `xml:"TXNID"`
	Balance   string   `xml:"BALANCE"`
}

var airtelBalancePattern = regexp.MustCompile(`balance is (\d+(?:\.\d+)?) NGN`)

func extractBalance(message string) string {
	match := airtelBalancePattern.FindStringSubmatch(message)
	if match == nil {
		return "0"
	}
	return match[1]
}

func (a *AirtelAdapter) vtuPayload(req ports.VendRequest) string {
	now := time.Now().Format("02/01/2006 15:04:05")
	return fmt.Sprintf(`<?xml version="1.0"?><!DOCTYPE COMMAND PUBLIC "-//Ocam//DTD XML Command 1.0//EN" "xml/command.dtd"><COMMAND><TYPE>EXRCTRFREQ</TYPE><DATE>%s</DATE><EXTNWCODE>NG</EXTNWCODE><MSISDN>%s</MSISDN><PIN>%s</PIN><LOGINID>%s</LOGINID><PASSWORD>%s</PASSWORD><EXTCODE></EXTCODE><EXTREFNUM>%s</EXTREFNUM><MSISDN2>%s</MSISDN2><AMOUNT>%s</AMOUNT><LANGUAGE1>1</LANGUAGE1><LANGUAGE2>1</LANGUAGE2><SELECTOR>1</SELECTOR></COMMAND>`,
		now, a.vendSIM, a.cfg.LoginPIN, a.cfg.LoginID, a.cfg.Password, req.MerchantRef, req.ReceiverPhone, req.Amount)
}

func (a *AirtelAdapter) dataPayload(req ports.VendRequest) string {
	now := time.Now().Format("02/01/2006 15:04:05")
	return fmt.Sprintf(`<?xml version="1.0"?><!DOCTYPE COMMAND PUBLIC "-//Ocam//DTD XML Command 1.0//EN" "xml/command.dtd"><COMMAND><TYPE>VASSELLREQ</TYPE><DATE>%s</DATE><EXTNWCODE>NG</EXTNWCODE><MSISDN>%s</MSISDN><PIN>%s</PIN><LOGINID>%s</LOGINID><PASSWORD>%s</PASSWORD><EXTCODE></EXTCODE><EXTREFNUM>%s</EXTREFNUM><SUBSMSISDN>%s</SUBSMSISDN><AMT>%s</AMT><SUBSERVICE>7</SUBSERVICE></COMMAND>`,
		now, a.vendSIM, a.cfg.LoginPIN, a.cfg.LoginID, a.cfg.Password, req.MerchantRef, req.ReceiverPhone, req.Amount)
}

func (a *AirtelAdapter) requeryPayload(merchantRef string) string {
	return fmt.Sprintf(`<?xml version="1.0"?><!DOCTYPE COMMAND PUBLIC "-//Ocam//DTD XML Command 1.0//EN" "xml/command.dtd"><COMMAND><TYPE>EXRCSTATREQ</TYPE><DATE></DATE><EXTNWCODE>NG</EXTNWCODE><MSISDN>%s</MSISDN><PIN>%s</PIN><LOGINID>%s</LOGINID><PASSWORD>%s</PASSWORD><EXTCODE></EXTCODE><EXTREFNUM>%s</EXTREFNUM><TXNID></TXNID><LANGUAGE1>1</LANGUAGE1></COMMAND>`,
		a.vendSIM, a.cfg.LoginPIN, a.cfg.LoginID, a.cfg.Password, merchantRef)
}

func (a *AirtelAdapter) balancePayload() string {
	return fmt.Sprintf(`<?xml version="1.0"?><COMMAND><TYPE>EXUSRBALREQ</TYPE><DATE></DATE><EXTNWCODE>NG</EXTNWCODE><MSISDN>%s</MSISDN><PIN>%s</PIN><LOGINID>%s</LOGINID><PASSWORD>%s</PASSWORD><EXTCODE></EXTCODE><EXTREFNUM></EXTREFNUM></COMMAND>`,
		a.vendSIM, a.cfg.LoginPIN, a.cfg.LoginID, a.cfg.Password)
}

// mapCommand folds a pretups command reply into the normalized set. Unmapped
// native statuses pass through untouched.
func mapCommand(cmd airtelCommand) ports.NormalizedResponse {
	resp := ports.NormalizedResponse{
		ResponseCode:     cmd.TxnStatus,
		ResponseMessage:  cmd.Message,
		ProviderRef:      cmd.TxnID,
		ProviderAvailBal: extractBalance(cmd.Message),
	}
	switch cmd.TxnStatus {
	case "200":
		resp.ResponseCode = apperror.CodeSuccess
		resp.ResponseMessage = msgSuccessful
	case "17017":
		resp.ResponseCode = apperror.CodeInvalidMSISDN
		resp.ResponseMessage = msgInvalidMSISDN
	case "205", "250":
		resp.ResponseCode = apperror.CodePending
		resp.ResponseMessage = msgPending
	}
	return resp
}

func (a *AirtelAdapter) roundTrip(ctx context.Context, payload string) (airtelCommand, *ports.NormalizedResponse) {
	headers := map[string]string{"Content-Type": "text/xml"}
	raw, err := send(ctx, a.client, http.MethodPost, a.url, payload, headers)
	if err != nil {
		a.log.Error().Err(err).Msg("pretups request failed")
		failure := transportFailure(err, a.timeout)
		return airtelCommand{}, &failure
	}
	var cmd airtelCommand
	if err := xml.Unmarshal(raw, &cmd); err != nil {
		a.log.Error().Err(err).Msg("unparseable pretups response")
		failure := ports.NormalizedResponse{
			ResponseCode:     apperror.CodeProviderFailed,
			ResponseMessage:  err.Error(),
			ProviderAvailBal: "0",
		}
		return airtelCommand{}, &failure
	}
	return cmd, nil
}

// Vend pushes an airtime or data top-up to Airtel.
func (a *AirtelAdapter) Vend(ctx context.Context, req ports.VendRequest) ports.NormalizedResponse {
	payload := a.dataPayload(req)
	if req.DataCode == "" {
		payload = a.vtuPayload(req)
	}
	a.log.Debug().Str("url", a.url).Str("merchant_ref", req.MerchantRef).Msg("sending vend request")
	cmd, failure := a.roundTrip(ctx, payload)
	if failure != nil {
		return *failure
	}
	return mapCommand(cmd)
}

// Requery checks the status of an earlier vend by its external reference.
func (a *AirtelAdapter) Requery(ctx context.Context, merchantRef, productCode string) ports.NormalizedResponse {
	cmd, failure := a.roundTrip(ctx, a.requeryPayload(merchantRef))
	if failure != nil {
		return *failure
	}
	return mapCommand(cmd)
}

// GetBalance queries the vending account balance.
func (a *AirtelAdapter) GetBalance(ctx context.Context) ports.BalanceResponse {
	cmd, failure := a.roundTrip(ctx, a.balancePayload())
	if failure != nil {
		return ports.BalanceResponse{
			ResponseCode:     failure.ResponseCode,
			ResponseMessage:  failure.ResponseMessage,
			ProviderAvailBal: "0",
		}
	}

	status := cmd.TxnStatus
	switch status {
	case "200":
		status = apperror.CodeSuccess
	case "205", "250":
		status = apperror.CodePending
	}
	return ports.BalanceResponse{
		ResponseCode:     status,
		ResponseMessage:  cmd.Message,
		ProviderAvailBal: orDefault(cmd.Balance, "0"),
	}
}
