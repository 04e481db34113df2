package handler

import (
	"net/http"

	"vas-gateway/internal/adapter/http/dto"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"
	"vas-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler handles merchant self-service endpoints.
type MerchantHandler struct {
	tokenSvc ports.TokenService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(tokenSvc ports.TokenService) *MerchantHandler {
	return &MerchantHandler{tokenSvc: tokenSvc}
}

// GenerateToken handles POST /api/merchant/generateMerchantJwtToken.
func (h *MerchantHandler) GenerateToken(c *gin.Context) {
	var req dto.GenerateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	minutes := req.ExpirationMinutes
	if minutes <= 0 {
		minutes = 60
	}
	token, err := h.tokenSvc.GenerateMerchantToken(c.Request.Context(), req.MerchantCode, minutes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.WithCode(c, http.StatusOK, apperror.CodeSuccess, "Successful", dto.TokenResponse{
		Token:             token,
		ExpirationMinutes: minutes,
	})
}
