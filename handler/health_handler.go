package handler

import (
	"context"
	"time"

	"remindly/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the process and its stores are reachable.
type HealthHandler struct {
	redis    *redis.Client
	useMongo bool
}

func NewHealthHandler(redisClient *redis.Client, useMongo bool) *HealthHandler {
	return &HealthHandler{redis: redisClient, useMongo: useMongo}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	healthy := true
	checks := gin.H{}

	if h.useMongo {
		if err := utils.PingMongo(ctx); err != nil {
			healthy = false
			checks["mongo"] = err.Error()
		} else {
			checks["mongo"] = "ok"
			checks["mongo_pool"] = utils.GetMongoMetrics()
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			healthy = false
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	checks["cpu_percent"] = utils.GetCPUUsage(0)
	checks["memory_percent"] = utils.GetMemoryUsage()

	if !healthy {
		utils.ServiceUnavailable(c, checks)
		return
	}
	utils.Message(c, "ok", checks)
}
