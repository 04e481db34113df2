package handler

import (
	"vas-gateway/internal/core/ports"
	"vas-gateway/pkg/apperror"
	"vas-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler handles the reference-data endpoints.
type CatalogHandler struct {
	catalogSvc ports.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogSvc ports.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// GetProductCategories handles GET /api/product/getProductCategories.
func (h *CatalogHandler) GetProductCategories(c *gin.Context) {
	categories, err := h.catalogSvc.ActiveCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, categories)
}

// GetProducts handles GET /api/product/getProducts?category_code=DATA.
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	categoryCode := c.Query("category_code")
	if categoryCode == "" {
		response.Error(c, apperror.Validation("category_code is required"))
		return
	}

	products, err := h.catalogSvc.ProductsByCategory(c.Request.Context(), categoryCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, products)
}

// GetDataBundle handles GET /api/product/getDataBundle?product_code=MTNDATA.
func (h *CatalogHandler) GetDataBundle(c *gin.Context) {
	productCode := c.Query("product_code")
	if productCode == "" {
		response.Error(c, apperror.Validation("product_code is required"))
		return
	}

	bundles, err := h.catalogSvc.DataBundles(c.Request.Context(), productCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bundles)
}
