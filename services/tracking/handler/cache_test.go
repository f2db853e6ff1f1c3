package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/kanghoo/kanghoo/internal/pkg/cache"
	"github.com/kanghoo/kanghoo/internal/pkg/middleware"
)

func TestCacheStatsEndpoint(t *testing.T) {
	m := cache.NewManager(cache.Config{SweepInterval: time.Hour})
	t.Cleanup(m.Close)
	m.Set(context.Background(), "resource:routes", []string{"morning"}, time.Hour)

	e := echo.New()
	NewCacheHandler(m).RegisterRoutes(e)

	prev := middleware.ServiceAPIKeys["dashboard-service"]
	middleware.ServiceAPIKeys["dashboard-service"] = "dashboard-service-key"
	t.Cleanup(func() { middleware.ServiceAPIKeys["dashboard-service"] = prev })

	// Without a key the route is closed
	req := httptest.NewRequest(http.MethodGet, "/internal/cache/stats", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// With the key the stats come back in the standard envelope
	req = httptest.NewRequest(http.MethodGet, "/internal/cache/stats", nil)
	req.Header.Set(middleware.APIKeyHeader, "dashboard-service-key")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool        `json:"success"`
		Data    cache.Stats `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.MemoryItems)
	assert.Greater(t, resp.Data.MemoryBytes, int64(0))
}
