package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"
	"vas-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Header names for signed merchant requests
	HeaderMerchantCode = "X-MERCHANT-CODE"
	HeaderAPIKey       = "X-API-KEY"
	HeaderSignature    = "X-SIGNATURE"
	HeaderTimestamp    = "X-TIMESTAMP"

	// Max timestamp drift allowed (5 minutes)
	maxTimestampDrift = 300 * time.Second

	// How long a resolved merchant identity stays cached
	merchantAuthTTL = 5 * time.Minute

	// Context keys
	CtxMerchantID   = "merchant_id"
	CtxMerchantCode = "merchant_code"
)

// cachedMerchant is the slice of the merchant row the authenticator needs.
// Cached separately because the domain struct hides credentials from JSON.
type cachedMerchant struct {
	ID           int64  `json:"id"`
	MerchantCode string `json:"merchant_code"`
	APIKey       string `json:"api_key"`
	APISecret    string `json:"api_secret"`
	APIAccessIPs string `json:"api_access_ips"`
	IsActive     bool   `json:"is_active"`
}

// Signature computes the request signature for a timestamp and API key pair:
// base64(HMAC-SHA256(api_secret, "{timestamp}|{api_key}")). Exported so tests
// and client SDK code build signatures the same way.
func Signature(apiSecret, timestamp, apiKey string) string {
	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write([]byte(timestamp + "|" + apiKey))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// parseTimestamp reads the X-TIMESTAMP header: ISO-8601 UTC, with or without
// the Z suffix or an explicit offset. A naive timestamp is treated as UTC.
// The signature covers the verbatim header string, never the parsed value.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
}

// HMACAuth verifies signed merchant requests.
// Pipeline: check headers -> check timestamp -> resolve merchant -> check IP
// -> verify signature.
func HMACAuth(merchantRepo ports.MerchantRepository, cache ports.KVCache, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantCode := c.GetHeader(HeaderMerchantCode)
		apiKey := c.GetHeader(HeaderAPIKey)
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)

		if merchantCode == "" || apiKey == "" || signature == "" || timestampStr == "" {
			response.Error(c, apperror.ErrAuthentication("Missing authentication headers"))
			c.Abort()
			return
		}

		timestamp, err := parseTimestamp(timestampStr)
		if err != nil {
			response.Error(c, apperror.ErrRequestExpired())
			c.Abort()
			return
		}
		if drift := time.Since(timestamp); drift > maxTimestampDrift || drift < -maxTimestampDrift {
			response.Error(c, apperror.ErrRequestExpired())
			c.Abort()
			return
		}

		merchant, err := resolveMerchant(c.Request.Context(), merchantRepo, cache, merchantCode, apiKey, log)
		if err != nil {
			log.Error().Err(err).Str("merchant_code", merchantCode).Msg("failed to resolve merchant")
			response.Error(c, apperror.InternalError(err))
			c.Abort()
			return
		}
		if merchant == nil || !merchant.IsActive || merchant.APIKey != apiKey {
			response.Error(c, apperror.ErrInvalidMerchant())
			c.Abort()
			return
		}

		allowed := domain.Merchant{APIAccessIPs: merchant.APIAccessIPs}
		if !allowed.AllowsIP(c.ClientIP()) {
			log.Warn().
				Str("merchant_code", merchantCode).
				Str("client_ip", c.ClientIP()).
				Msg("request from unlisted IP rejected")
			response.Error(c, apperror.ErrUnauthorizedIP())
			c.Abort()
			return
		}

		want := Signature(merchant.APISecret, timestampStr, apiKey)
		if !hmac.Equal([]byte(want), []byte(signature)) {
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		c.Set(CtxMerchantID, merchant.ID)
		c.Set(CtxMerchantCode, merchant.MerchantCode)
		c.Next()
	}
}

// resolveMerchant serves the merchant identity from the cache, falling back
// to the database on a miss or when the cached API key no longer matches
// (a rotated key must not lock the merchant out for the TTL).
func resolveMerchant(ctx context.Context, repo ports.MerchantRepository, cache ports.KVCache, merchantCode, apiKey string, log zerolog.Logger) (*cachedMerchant, error) {
	key := ports.KeyMerchantAuth(merchantCode)
	if raw, err := cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Msg("merchant auth cache read failed")
	} else if raw != nil {
		var m cachedMerchant
		if err := json.Unmarshal(raw, &m); err == nil && m.APIKey == apiKey {
			return &m, nil
		}
	}

	merchant, err := repo.GetByCodeAndKey(ctx, merchantCode, apiKey)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, nil
	}

	m := &cachedMerchant{
		ID:           merchant.ID,
		MerchantCode: merchant.MerchantCode,
		APIKey:       merchant.APIKey,
		APISecret:    merchant.APISecret,
		APIAccessIPs: merchant.APIAccessIPs,
		IsActive:     merchant.IsActive,
	}
	if raw, err := json.Marshal(m); err == nil {
		if err := cache.Set(ctx, key, raw, merchantAuthTTL); err != nil {
			log.Warn().Err(err).Msg("merchant auth cache write failed")
		}
	}
	return m, nil
}

// MerchantID reads the authenticated merchant ID set by HMACAuth.
func MerchantID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxMerchantID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// RequestLogger logs every HTTP request with latency and status.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery converts panics into a processing-error envelope.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.WithCode(c, http.StatusInternalServerError, apperror.CodeProcessingError,
					"Unable to process transaction, please try again", nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}
