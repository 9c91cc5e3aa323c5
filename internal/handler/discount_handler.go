package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

// DiscountHandler validates codes for shoppers and manages them for admins.
type DiscountHandler struct {
	discountService *service.DiscountService
}

// NewDiscountHandler creates a new DiscountHandler.
func NewDiscountHandler(discountService *service.DiscountService) *DiscountHandler {
	return &DiscountHandler{discountService: discountService}
}

// Validate handles POST /v1/discount-codes/validate. An unusable code is a
// 200 with valid=false and the reason.
func (h *DiscountHandler) Validate(c *gin.Context) {
	var req service.ValidateDiscountRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.discountService.Validate(c.Request.Context(), req.Code, req.Subtotal, req.ProductIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Código de descuento verificado", res)
}

// List handles GET /v1/admin/discount-codes
func (h *DiscountHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	codes, total, err := h.discountService.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Códigos de descuento obtenidos", codes, page, limit, total)
}

// Get handles GET /v1/admin/discount-codes/:id
func (h *DiscountHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	code, err := h.discountService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Código de descuento obtenido", code)
}

// Create handles POST /v1/admin/discount-codes
func (h *DiscountHandler) Create(c *gin.Context) {
	var req service.DiscountCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	code, err := h.discountService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Código de descuento creado", code)
}

// Update handles PUT /v1/admin/discount-codes/:id
func (h *DiscountHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.DiscountCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	code, err := h.discountService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Código de descuento actualizado", code)
}

// Delete handles DELETE /v1/admin/discount-codes/:id
func (h *DiscountHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.discountService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Código de descuento eliminado", nil)
}

// Usages handles GET /v1/admin/discount-codes/:id/usages
func (h *DiscountHandler) Usages(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	usages, err := h.discountService.Usages(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Usos del código de descuento obtenidos", usages)
}
