package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/utils"
)

var startTime = time.Now()

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides the health endpoint.
type HealthHandler struct {
	db    Pinger
	redis Pinger
	erp   Pinger
}

// NewHealthHandler creates a new HealthHandler. A nil erp is reported as
// disabled.
func NewHealthHandler(db, redis, erp Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, erp: erp}
}

// GetHealth responds 200 when the database and Redis answer. The ERP is
// informational since the storefront degrades to local data without it.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	dbStatus := pingStatus(ctx, h.db)
	redisStatus := pingStatus(ctx, h.redis)
	erpStatus := "disabled"
	if h.erp != nil {
		erpStatus = pingStatus(ctx, h.erp)
	}

	status, code := "healthy", http.StatusOK
	if dbStatus != "connected" || redisStatus != "connected" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	} else if erpStatus == "disconnected" {
		status = "degraded"
	}

	utils.Success(c, code, "Estado del servicio: "+status, gin.H{
		"status":   status,
		"version":  "1.0.0",
		"uptime":   int(time.Since(startTime).Seconds()),
		"database": dbStatus,
		"redis":    redisStatus,
		"erp":      erpStatus,
	})
}

func pingStatus(ctx context.Context, p Pinger) string {
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
