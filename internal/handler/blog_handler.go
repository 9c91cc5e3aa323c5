package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

// BlogHandler serves published posts and the admin editor.
type BlogHandler struct {
	blogService *service.BlogService
}

// NewBlogHandler creates a new BlogHandler.
func NewBlogHandler(blogService *service.BlogService) *BlogHandler {
	return &BlogHandler{blogService: blogService}
}

// ListPublished handles GET /v1/blog
func (h *BlogHandler) ListPublished(c *gin.Context) {
	page, limit := pageParams(c)
	posts, total, err := h.blogService.ListPublished(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Publicaciones obtenidas", posts, page, limit, total)
}

// GetPublished handles GET /v1/blog/:slug
func (h *BlogHandler) GetPublished(c *gin.Context) {
	post, err := h.blogService.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Publicación obtenida", post)
}

// List handles GET /v1/admin/blog
func (h *BlogHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	status := c.Query("status")
	if status != "" && !models.ValidBlogStatus(status) {
		utils.Error(c, http.StatusBadRequest, "INVALID_STATUS", "Estado de publicación inválido")
		return
	}
	posts, total, err := h.blogService.List(c.Request.Context(), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Publicaciones obtenidas", posts, page, limit, total)
}

// Get handles GET /v1/admin/blog/:id
func (h *BlogHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	post, err := h.blogService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Publicación obtenida", post)
}

// Create handles POST /v1/admin/blog
func (h *BlogHandler) Create(c *gin.Context) {
	var req service.BlogPostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.blogService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Publicación creada", post)
}

// Update handles PUT /v1/admin/blog/:id
func (h *BlogHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.BlogPostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.blogService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Publicación actualizada", post)
}

// Delete handles DELETE /v1/admin/blog/:id
func (h *BlogHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.blogService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Publicación eliminada", nil)
}
