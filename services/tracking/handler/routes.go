package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/kanghoo/kanghoo/internal/pkg/middleware"
)

// RegisterRoutes registers all tracking HTTP routes
func (h *TrackingHandler) RegisterRoutes(e *echo.Echo) {
	// Ingestion routes used by the mobile transport client
	e.POST("/locations", h.SaveLocation)
	e.POST("/trips", h.StartTrip)
	e.POST("/trips/:tripID/finish", h.FinalizeTrip)
	e.POST("/trips/:tripID/events", h.RecordEvent)

	// Read routes
	e.GET("/trips/:tripID", h.GetTrip)
	e.GET("/drivers/:driverID/location", h.GetCurrentLocation)
	e.GET("/drivers/:driverID/history", h.GetLocationHistory)

	// Internal routes for service-to-service consumers (API key required)
	internal := e.Group("/internal", middleware.ValidateAPIKey("dashboard-service", "notification-service"))
	internal.GET("/drivers/:driverID/location", h.GetCurrentLocation)
	internal.GET("/drivers/:driverID/history", h.GetLocationHistory)
	internal.GET("/trips/:tripID", h.GetTrip)
}
