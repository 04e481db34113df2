package handler

import (
	"vas-gateway/internal/adapter/http/middleware"
	"vas-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	VendingSvc     ports.VendingService
	CatalogSvc     ports.CatalogService
	ReconcileSvc   ports.ReconcileService
	TokenSvc       ports.TokenService
	MerchantRepo   ports.MerchantRepository
	AuthCache      ports.KVCache
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	hmacAuth := middleware.HMACAuth(deps.MerchantRepo, deps.AuthCache, deps.Logger)

	vendHandler := NewVendHandler(deps.VendingSvc)
	catalogHandler := NewCatalogHandler(deps.CatalogSvc)
	opsHandler := NewOpsHandler(deps.ReconcileSvc)
	merchantHandler := NewMerchantHandler(deps.TokenSvc)

	product := r.Group("/api/product")
	{
		// Signed merchant calls
		product.POST("/vendAirtime", hmacAuth, vendHandler.VendAirtime)
		product.POST("/vendData", hmacAuth, vendHandler.VendData)
		product.POST("/requeryTransaction", hmacAuth, vendHandler.RequeryTransaction)
		product.GET("/getProductCategories", hmacAuth, catalogHandler.GetProductCategories)
		product.GET("/getProducts", hmacAuth, catalogHandler.GetProducts)
		product.GET("/getDataBundle", hmacAuth, catalogHandler.GetDataBundle)

		// Cron trigger, reachable only from the internal network
		product.GET("/cronReverseTimeoutUnreversedTransaction", opsHandler.SweepTimedOut)
	}

	merchant := r.Group("/api/merchant")
	{
		merchant.POST("/generateMerchantJwtToken", merchantHandler.GenerateToken)
	}

	return r
}
