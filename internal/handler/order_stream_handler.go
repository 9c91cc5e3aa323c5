package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/sse"
	"github.com/filtrotek/storefront/internal/utils"
)

const streamKeepAlive = 25 * time.Second

// TokenValidator parses session tokens.
type TokenValidator interface {
	Validate(token string) (*utils.Claims, error)
}

// OrderStreamHandler pushes new orders and status changes to the admin dashboard.
type OrderStreamHandler struct {
	hub    *sse.Hub
	tokens TokenValidator
}

// NewOrderStreamHandler creates an OrderStreamHandler.
func NewOrderStreamHandler(hub *sse.Hub, tokens TokenValidator) *OrderStreamHandler {
	return &OrderStreamHandler{hub: hub, tokens: tokens}
}

// Stream handles GET /v1/admin/order-events?token=<jwt>. EventSource cannot
// send an Authorization header, so the token travels in the query string.
func (h *OrderStreamHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Falta el token")
		return
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token inválido o expirado")
		return
	}
	if claims.Role != string(models.RoleAdmin) {
		utils.Error(c, http.StatusForbidden, "FORBIDDEN", "Se requiere acceso de administrador")
		return
	}

	id := fmt.Sprintf("admin-%d-%d", claims.UserID, time.Now().UnixNano())
	sub := h.hub.Subscribe(id, claims.UserID)
	defer h.hub.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{"subscriber": id})
	c.Writer.Flush()
	log.Debug().Str("subscriber", id).Msg("Order stream started")

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case msg, ok := <-sub.Messages:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, string(msg.Data))
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
