package handler

import (
	"net/http"

	"vas-gateway/internal/adapter/http/dto"
	"vas-gateway/internal/adapter/http/middleware"
	"vas-gateway/internal/core/domain"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"
	"vas-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// VendHandler handles the vending endpoints.
type VendHandler struct {
	vendingSvc ports.VendingService
}

// NewVendHandler creates a new VendHandler.
func NewVendHandler(vendingSvc ports.VendingService) *VendHandler {
	return &VendHandler{vendingSvc: vendingSvc}
}

// VendAirtime handles POST /api/product/vendAirtime.
func (h *VendHandler) VendAirtime(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidMerchant())
		return
	}

	var req dto.VendAirtimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.vendingSvc.VendAirtime(c.Request.Context(), ports.AirtimeVendRequest{
		MerchantID:  merchantID,
		ProductCode: req.ProductCode,
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
		MerchantRef: req.MerchantRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.WithCode(c, http.StatusOK, result.Code, result.Message, dto.FromTransaction(result.Transaction))
}

// VendData handles POST /api/product/vendData.
func (h *VendHandler) VendData(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidMerchant())
		return
	}

	var req dto.VendDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.vendingSvc.VendData(c.Request.Context(), ports.DataVendRequest{
		MerchantID:  merchantID,
		ProductCode: req.ProductCode,
		DataCode:    req.DataCode,
		PhoneNumber: req.PhoneNumber,
		MerchantRef: req.MerchantRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.WithCode(c, http.StatusOK, result.Code, result.Message, dto.FromTransaction(result.Transaction))
}

// RequeryTransaction handles POST /api/product/requeryTransaction. It reports
// the stored state; it does not reach out to the provider.
func (h *VendHandler) RequeryTransaction(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidMerchant())
		return
	}

	var req dto.RequeryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txn, err := h.vendingSvc.TransactionByRef(c.Request.Context(), merchantID, req.MerchantRef)
	if err != nil {
		response.Error(c, err)
		return
	}

	code, message := statusToCode(txn)
	response.WithCode(c, http.StatusOK, code, message, dto.FromTransaction(txn))
}

// statusToCode folds a stored transaction state into the envelope code pair.
func statusToCode(t *domain.Transaction) (string, string) {
	switch t.Status {
	case domain.TransactionStatusSuccess:
		return apperror.CodeSuccess, "Successful"
	case domain.TransactionStatusFailed:
		if t.ProviderDesc != nil && *t.ProviderDesc != "" {
			return apperror.CodeProviderFailed, *t.ProviderDesc
		}
		return apperror.CodeProviderFailed, "Transaction failed"
	default:
		return apperror.CodePending, "Transaction is pending, awaiting response from provider"
	}
}
