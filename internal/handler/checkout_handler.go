package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/middleware"
	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

// CheckoutHandler prepares payments for the storefront cart.
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// CreatePaymentIntent handles POST /v1/checkout/payment-intent
func (h *CheckoutHandler) CreatePaymentIntent(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Cuerpo de la solicitud inválido")
		return
	}

	res, err := h.checkoutService.CreatePaymentIntent(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		// A cart line pointing at a missing product is a bad request here.
		if errors.Is(err, utils.ErrProductNotFound) {
			utils.Error(c, http.StatusBadRequest, "PRODUCT_NOT_FOUND", "Producto no encontrado")
			return
		}
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Intento de pago creado", res)
}
