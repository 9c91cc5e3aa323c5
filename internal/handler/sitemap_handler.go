package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/service"
)

// SitemapHandler serves sitemap.xml.
type SitemapHandler struct {
	sitemap *service.SitemapService
}

func NewSitemapHandler(sitemap *service.SitemapService) *SitemapHandler {
	return &SitemapHandler{sitemap: sitemap}
}

// Get handles GET /sitemap.xml
func (h *SitemapHandler) Get(c *gin.Context) {
	data, err := h.sitemap.Generate(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate sitemap")
		c.String(http.StatusInternalServerError, "sitemap unavailable")
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}
