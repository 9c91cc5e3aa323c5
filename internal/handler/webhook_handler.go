package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

// maxWebhookBody bounds the payload read from the processor.
const maxWebhookBody = 64 << 10

// WebhookHandler receives payment processor events.
type WebhookHandler struct {
	webhookService *service.PaymentWebhookService
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(webhookService *service.PaymentWebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// HandleStripe handles POST /webhook/stripe. The signature covers the raw
// body, so it must be read before any decoding.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Cuerpo de la solicitud inválido")
		return
	}

	res, err := h.webhookService.ProcessWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, utils.ErrInvalidSignature) {
			utils.Error(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Firma del webhook inválida")
			return
		}
		log.Error().Err(err).Msg("Failed to process payment webhook")
		utils.Error(c, http.StatusInternalServerError, "WEBHOOK_FAILED", "Error al procesar el evento")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": res.Outcome})
}
