package api

import (
	"context"  // Ping deadline
	"net/http" // HTTP status codes
	"time"     // Timeouts

	"campus_identity/internal/utils" // Response helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
)

// Pinger is satisfied by store.Repository
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the database and Redis answer
func HealthHandler(db Pinger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "ok", "redis": "ok"}
		healthy := true
		if err := db.Ping(ctx); err != nil {
			logrus.WithError(err).Error("database health check failed")
			status["database"] = "unavailable"
			healthy = false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Error("redis health check failed")
			status["redis"] = "unavailable"
			healthy = false
		}
		if !healthy {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, utils.Envelope{Success: false, Message: "Service unavailable", Data: status})
			return
		}
		utils.RespondOK(c, http.StatusOK, status)
	}
}
