package controller

import (
	"context"
	"net/http"
	"time"

	"desorientado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthController struct {
	Database Pinger
	// Cache is optional; its failure degrades the service without making
	// it unavailable, since progress falls back to the database alone.
	Cache Pinger
}

func NewHealthController(database, cache Pinger) *HealthController {
	return &HealthController{Database: database, Cache: cache}
}

// HealthCheck godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := c.Database.Ping(pctx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up"}
	status := "ok"
	if c.Cache != nil {
		if err := c.Cache.Ping(pctx); err != nil {
			components["cache"] = "down"
			status = "degraded"
		} else {
			components["cache"] = "up"
		}
	}

	util.Success(ctx, gin.H{
		"status":     status,
		"components": components,
	})
}
