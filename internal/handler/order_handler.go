package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/middleware"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/repository"
	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

// OrderHandler serves customer order history and admin order management.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// ListMine handles GET /v1/orders
func (h *OrderHandler) ListMine(c *gin.Context) {
	page, limit := pageParams(c)
	orders, total, err := h.orderService.ListForUser(c.Request.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Pedidos obtenidos", orders, page, limit, total)
}

// GetMine handles GET /v1/orders/:orderNumber
func (h *OrderHandler) GetMine(c *gin.Context) {
	order, err := h.orderService.GetForUser(c.Request.Context(), middleware.UserID(c), c.Param("orderNumber"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Pedido obtenido", order)
}

// List handles GET /v1/admin/orders
func (h *OrderHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	status := c.Query("status")
	if status != "" && !models.ValidOrderStatus(status) {
		utils.Error(c, http.StatusBadRequest, "INVALID_STATUS", "Estado de pedido inválido")
		return
	}
	orders, total, err := h.orderService.List(c.Request.Context(), repository.OrderFilter{
		Status: status,
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Pedidos obtenidos", orders, page, limit, total)
}

// Get handles GET /v1/admin/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Pedido obtenido", order)
}

// UpdateStatus handles PUT /v1/admin/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Estado del pedido actualizado", order)
}

// Refund handles POST /v1/admin/orders/:id/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.orderService.Refund(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Pedido reembolsado", res)
}

// Stats handles GET /v1/admin/stats
func (h *OrderHandler) Stats(c *gin.Context) {
	stats, err := h.orderService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Estadísticas obtenidas", stats)
}
