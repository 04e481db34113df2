package handler

import (
	"net/http"

	"vas-gateway/internal/adapter/http/dto"
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// OpsHandler handles the operational endpoints (cron triggers, health).
type OpsHandler struct {
	reconcileSvc ports.ReconcileService
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(reconcileSvc ports.ReconcileService) *OpsHandler {
	return &OpsHandler{reconcileSvc: reconcileSvc}
}

// SweepTimedOut handles GET /api/product/cronReverseTimeoutUnreversedTransaction.
// The scheduled worker runs the same sweep; this endpoint exists for external
// cron setups and manual pokes.
func (h *OpsHandler) SweepTimedOut(c *gin.Context) {
	count, err := h.reconcileSvc.SweepTimedOut(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SweepResponse{Reversed: count})
}

// HealthCheck handles GET /health, verifying every registered dependency.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
