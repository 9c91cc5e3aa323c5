package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

// ProductHandler serves the public catalog and stock checks.
type ProductHandler struct {
	catalog *service.CatalogService
	stock   *service.StockService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalog *service.CatalogService, stock *service.StockService) *ProductHandler {
	return &ProductHandler{catalog: catalog, stock: stock}
}

// ListProducts handles GET /v1/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, limit := pageParams(c)
	status := c.DefaultQuery("status", string(models.ProductActive))
	if !models.ValidProductStatus(status) {
		utils.Error(c, http.StatusBadRequest, "INVALID_STATUS", "Estado de producto inválido")
		return
	}

	res, err := h.catalog.List(c.Request.Context(), service.CatalogQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Status:   status,
		Currency: c.DefaultQuery("currency", "MXN"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPaginationFromSource(c, http.StatusOK, "Productos obtenidos", res.Products, res.Page, res.Limit, res.Total, res.Source)
}

// GetProduct handles GET /v1/products/:id; id is a local id or an ERP id.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, source, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"), c.DefaultQuery("currency", "MXN"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessFromSource(c, http.StatusOK, "Producto obtenido", p, source)
}

// CheckStock handles POST /v1/stock/check
func (h *ProductHandler) CheckStock(c *gin.Context) {
	var req service.StockCheckRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.stock.Check(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Existencias verificadas", res)
}
