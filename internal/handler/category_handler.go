package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

// CategoryHandler serves filter categories and their variants.
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// ListPublic handles GET /v1/categories
func (h *CategoryHandler) ListPublic(c *gin.Context) {
	cats, err := h.categoryService.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Categorías obtenidas", cats)
}

// GetBySlug handles GET /v1/categories/:slug
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	cat, err := h.categoryService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Categoría obtenida", cat)
}

// List handles GET /v1/admin/categories
func (h *CategoryHandler) List(c *gin.Context) {
	cats, err := h.categoryService.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Categorías obtenidas", cats)
}

// Get handles GET /v1/admin/categories/:id
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	cat, err := h.categoryService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Categoría obtenida", cat)
}

// Create handles POST /v1/admin/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.categoryService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Categoría creada", cat)
}

// Update handles PUT /v1/admin/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.categoryService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Categoría actualizada", cat)
}

// Delete handles DELETE /v1/admin/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Categoría eliminada", nil)
}

// AddVariant handles POST /v1/admin/categories/:id/variants
func (h *CategoryHandler) AddVariant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.VariantRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.categoryService.AddVariant(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Variante creada", v)
}

// UpdateVariant handles PUT /v1/admin/variants/:id
func (h *CategoryHandler) UpdateVariant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.VariantRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.categoryService.UpdateVariant(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Variante actualizada", v)
}

// DeleteVariant handles DELETE /v1/admin/variants/:id
func (h *CategoryHandler) DeleteVariant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.DeleteVariant(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Variante eliminada", nil)
}
