package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

// ExchangeRateHandler exposes the USD to MXN rate.
type ExchangeRateHandler struct {
	rates *service.ExchangeRateService
}

func NewExchangeRateHandler(rates *service.ExchangeRateService) *ExchangeRateHandler {
	return &ExchangeRateHandler{rates: rates}
}

// Get handles GET /v1/exchange-rate
func (h *ExchangeRateHandler) Get(c *gin.Context) {
	rate := h.rates.Current(c.Request.Context())
	utils.SuccessFromSource(c, http.StatusOK, "Tipo de cambio obtenido", rate, rate.Source)
}
