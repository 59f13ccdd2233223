package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/pkg/cache"
	"github.com/shashiranjanraj/zepto/pkg/ctx"
	"github.com/shashiranjanraj/zepto/pkg/response"
)

type HealthController struct {
	store *repositories.Store
	cache cache.Store
}

func NewHealthController(store *repositories.Store, c cache.Store) *HealthController {
	return &HealthController{store: store, cache: c}
}

func (hc *HealthController) Root(c *ctx.Context) {
	c.Message("Zepto Clone API is running", map[string]string{"version": "1.0.0"})
}

// Health pings the store and reports 503 when it is unreachable.
func (hc *HealthController) Health(c *ctx.Context) {
	pingCtx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC(),
		"database":  hc.store.Driver,
		"cache":     hc.cache.Driver(),
	}
	if hc.store.Ping != nil {
		if err := hc.store.Ping(pingCtx); err != nil {
			c.Logger().Warn("health: store unreachable", "error", err)
			body["status"] = "DEGRADED"
			c.JSON(http.StatusServiceUnavailable, response.Envelope{
				Status:  http.StatusServiceUnavailable,
				Message: "Database unreachable",
				Data:    body,
			})
			return
		}
	}
	c.Success(body)
}
