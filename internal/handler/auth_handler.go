package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/middleware"
	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

// AuthHandler handles registration, login and user administration.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Cuenta creada", res)
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Inicio de sesión exitoso", res)
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Usuario obtenido", user)
}

// ListUsers handles GET /v1/admin/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, total, err := h.authService.ListUsers(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Usuarios obtenidos", users, page, limit, total)
}

// UpdateRole handles PUT /v1/admin/users/:id/role
func (h *AuthHandler) UpdateRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.authService.UpdateRole(c.Request.Context(), middleware.UserID(c), id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Rol actualizado", user)
}
