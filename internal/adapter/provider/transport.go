package provider

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"
)

// Canonical messages for normalized codes.
const (
	msgSuccessful     = "Successful"
	msgInvalidMSISDN  = "Invalid MSISDN"
	msgPending        = "Transaction is pending, awaiting response from provider"
	msgNotImplemented = "Feature not implemented"
)

// newHTTPClient builds the per-adapter HTTP client. Several upstreams sit on
// private links with self-signed certificates, so TLS verification is opt-in
// through the account config.
func newHTTPClient(timeout time.Duration, verifyTLS bool) *http.Client {
	transport := &http.Transport{}
	if !verifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func send(ctx context.Context, client *http.Client, method, url string, body string, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	return raw, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transportFailure folds an HTTP error into a normalized response. A timeout
// or an aborted request is PENDING so the coordinator leaves the debit in
// place and requeries: the upstream may still have honored the vend. Any
// other failure is a hard provider error.
func transportFailure(err error, timeout time.Duration) ports.NormalizedResponse {
	if isTimeout(err) || errors.Is(err, context.Canceled) {
		return ports.NormalizedResponse{
			ResponseCode:     apperror.CodePending,
			ResponseMessage:  fmt.Sprintf("Request timeout after %s", timeout),
			ProviderAvailBal: "0",
		}
	}
	return ports.NormalizedResponse{
		ResponseCode:     apperror.CodeProviderFailed,
		ResponseMessage:  err.Error(),
		ProviderAvailBal: "0",
	}
}

func notImplemented() ports.NormalizedResponse {
	return ports.NormalizedResponse{
		ResponseCode:     apperror.CodeNotImplemented,
		ResponseMessage:  msgNotImplemented,
		ProviderAvailBal: "0",
	}
}

// generateSequence returns a random 10-digit request sequence.
func generateSequence() string {
	return strconv.FormatInt(1000000000+rand.Int63n(9000000000), 10)
}

func decodeConfig(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
