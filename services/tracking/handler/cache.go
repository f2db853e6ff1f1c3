package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kanghoo/kanghoo/internal/pkg/cache"
	"github.com/kanghoo/kanghoo/internal/pkg/middleware"
	"github.com/kanghoo/kanghoo/internal/utils"
)

// CacheHandler exposes cache introspection to internal consumers
type CacheHandler struct {
	cache *cache.Manager
}

// NewCacheHandler creates a new cache HTTP handler
func NewCacheHandler(cacheManager *cache.Manager) *CacheHandler {
	return &CacheHandler{cache: cacheManager}
}

// GetStats reports per-tier entry counts and the memory footprint
func (h *CacheHandler) GetStats(c echo.Context) error {
	stats := h.cache.GetStats(c.Request().Context())
	return utils.SuccessResponse(c, http.StatusOK, "Cache stats retrieved successfully", stats)
}

// RegisterRoutes registers the cache routes (API key required)
func (h *CacheHandler) RegisterRoutes(e *echo.Echo) {
	internal := e.Group("/internal", middleware.ValidateAPIKey("dashboard-service"))
	internal.GET("/cache/stats", h.GetStats)
}
