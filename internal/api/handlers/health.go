package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/config"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewHealthHandler(db *gorm.DB, cfg *config.Config) *HealthHandler {
	return &HealthHandler{db: db, cfg: cfg}
}

// HealthCheck reports database reachability and which providers have a credential.
// It never reveals the keys themselves.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	dbStatus := "ok"

	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		err = sqlDB.PingContext(ctx)
		cancel()
	}
	if err != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": dbStatus,
		"providers": gin.H{
			config.ProviderGemini: h.cfg.APIKeyFor(config.ProviderGemini) != "",
			config.ProviderOpenAI: h.cfg.APIKeyFor(config.ProviderOpenAI) != "",
		},
	})
}
