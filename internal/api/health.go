package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipebox/internal/database"
)

// HealthHandler reports whether the stores the app depends on answer
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
	log   *zap.Logger
}

// NewHealthHandler creates a HealthHandler. redisClient may be nil when no
// component uses redis.
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, log: log}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	healthy := true

	if err := database.HealthCheck(ctx, h.db); err != nil {
		h.log.Error("database health check failed", zap.Error(err))
		checks["database"] = "unavailable"
		healthy = false
	}
	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.log.Error("redis health check failed", zap.Error(err))
			checks["redis"] = "unavailable"
			healthy = false
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "checks": checks})
}
