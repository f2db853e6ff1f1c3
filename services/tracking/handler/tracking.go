package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kanghoo/kanghoo/internal/pkg/logger"
	"github.com/kanghoo/kanghoo/internal/pkg/models"
	"github.com/kanghoo/kanghoo/internal/utils"
	"github.com/kanghoo/kanghoo/services/tracking"
)

// TrackingHandler handles HTTP requests for tracking operations
type TrackingHandler struct {
	trackingUC tracking.TrackingUC
}

// NewTrackingHandler creates a new tracking HTTP handler
func NewTrackingHandler(trackingUC tracking.TrackingUC) *TrackingHandler {
	return &TrackingHandler{trackingUC: trackingUC}
}

// SaveLocation handles driver location reports
func (h *TrackingHandler) SaveLocation(c echo.Context) error {
	var req models.LocationRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	sample, err := h.trackingUC.SaveLocation(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}

	return utils.SuccessResponse(c, http.StatusCreated, "Location stored successfully", sample)
}

// StartTrip handles trip creation
func (h *TrackingHandler) StartTrip(c echo.Context) error {
	var req models.TripStartRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	trip, err := h.trackingUC.StartTrip(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}

	logger.Info("Trip started via HTTP",
		logger.String("trip_id", trip.ID.String()),
		logger.String("client_ip", c.RealIP()))

	return utils.SuccessResponse(c, http.StatusCreated, "Trip started successfully", trip)
}

// FinalizeTrip handles the finish request for a trip
func (h *TrackingHandler) FinalizeTrip(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("tripID"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid trip ID")
	}

	var metrics models.TripMetrics
	if err := c.Bind(&metrics); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	trip, err := h.trackingUC.FinalizeTrip(c.Request().Context(), tripID, metrics)
	if err != nil {
		return errorResponse(c, err)
	}

	return utils.SuccessResponse(c, http.StatusOK, "Trip finished successfully", trip)
}

// RecordEvent handles boarding and alighting records for a trip
func (h *TrackingHandler) RecordEvent(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("tripID"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid trip ID")
	}

	var req models.TripEventRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	if !req.Type.Valid() {
		return utils.BadRequestResponse(c, "Event type must be boarding or alighting")
	}

	var event *models.TripEvent
	if req.Type == models.EventTypeBoarding {
		event, err = h.trackingUC.RecordBoarding(c.Request().Context(), tripID, req)
	} else {
		event, err = h.trackingUC.RecordAlighting(c.Request().Context(), tripID, req)
	}
	if err != nil {
		return errorResponse(c, err)
	}

	return utils.SuccessResponse(c, http.StatusCreated, "Event recorded successfully", event)
}

// GetTrip returns a trip with its event log
func (h *TrackingHandler) GetTrip(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("tripID"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid trip ID")
	}

	detail, err := h.trackingUC.GetTripData(c.Request().Context(), tripID)
	if err != nil {
		return errorResponse(c, err)
	}

	return utils.SuccessResponse(c, http.StatusOK, "Trip retrieved successfully", detail)
}

// GetCurrentLocation returns a driver's latest fresh sample
func (h *TrackingHandler) GetCurrentLocation(c echo.Context) error {
	driverID := c.Param("driverID")
	if driverID == "" {
		return utils.BadRequestResponse(c, "Driver ID is required")
	}

	sample, err := h.trackingUC.GetCurrentLocation(c.Request().Context(), driverID)
	if err != nil {
		return errorResponse(c, err)
	}

	return utils.SuccessResponse(c, http.StatusOK, "Location retrieved successfully", sample)
}

// GetLocationHistory returns a bounded slice of past samples
func (h *TrackingHandler) GetLocationHistory(c echo.Context) error {
	driverID := c.Param("driverID")
	if driverID == "" {
		return utils.BadRequestResponse(c, "Driver ID is required")
	}

	filter, err := parseHistoryFilter(c)
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	samples, err := h.trackingUC.GetLocationHistory(c.Request().Context(), driverID, filter)
	if err != nil {
		return errorResponse(c, err)
	}

	return utils.SuccessResponse(c, http.StatusOK, "Location history retrieved successfully", samples)
}

func parseHistoryFilter(c echo.Context) (models.HistoryFilter, error) {
	var filter models.HistoryFilter

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = limit
	}

	if startStr := c.QueryParam("start"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return filter, errors.New("invalid start time, expected RFC3339")
		}
		filter.Start = start
	}

	if endStr := c.QueryParam("end"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return filter, errors.New("invalid end time, expected RFC3339")
		}
		filter.End = end
	}

	return filter, nil
}

// errorResponse maps service error kinds to HTTP statuses, keeping the
// uniform response envelope
func errorResponse(c echo.Context, err error) error {
	switch tracking.KindOf(err) {
	case tracking.KindValidation:
		return utils.BadRequestResponse(c, err.Error())
	case tracking.KindNotFound:
		return utils.NotFoundResponse(c, err.Error())
	case tracking.KindExpired:
		return utils.GoneResponse(c, err.Error())
	case tracking.KindUpstream:
		return utils.BadGatewayResponse(c, err.Error())
	default:
		logger.Error("Unhandled tracking error", logger.Err(err))
		return utils.InternalServerErrorResponse(c, "Internal server error")
	}
}
