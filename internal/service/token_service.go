package service

import (
	"context"
	"fmt"
	"time"

	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const defaultTokenMinutes = 60

// TokenServiceImpl issues merchant JWTs signed with the merchant's own
// api_secret. Kept for callers that still exchange tokens before moving to
// signed requests.
type TokenServiceImpl struct {
	merchantRepo ports.MerchantRepository
	log          zerolog.Logger
}

// NewTokenService creates a new TokenServiceImpl.
func NewTokenService(merchantRepo ports.MerchantRepository, log zerolog.Logger) *TokenServiceImpl {
	return &TokenServiceImpl{merchantRepo: merchantRepo, log: log}
}

// GenerateMerchantToken signs a short-lived HS256 token for the merchant.
func (s *TokenServiceImpl) GenerateMerchantToken(ctx context.Context, merchantCode string, expirationMinutes int) (string, error) {
	m, err := s.merchantRepo.GetByCode(ctx, merchantCode)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("load merchant %s: %w", merchantCode, err))
	}
	if m == nil || !m.IsActive {
		return "", apperror.ErrNotFound("Merchant not found or inactive")
	}
	if m.APISecret == "" {
		return "", apperror.ErrNotFound("API Secret Key not properly configured")
	}

	if expirationMinutes <= 0 {
		expirationMinutes = defaultTokenMinutes
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"merchant_code": m.MerchantCode,
		"merchant_id":   m.ID,
		"iat":           now.Unix(),
		"exp":           now.Add(time.Duration(expirationMinutes) * time.Minute).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.APISecret))
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("sign merchant token: %w", err))
	}
	s.log.Info().Str("merchant_code", merchantCode).Int("expires_in_minutes", expirationMinutes).Msg("merchant token issued")
	return signed, nil
}
