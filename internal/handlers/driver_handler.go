package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/dashboard"
	"github.com/vgnt/transport-portal/internal/location"
	"github.com/vgnt/transport-portal/internal/middleware"
	"github.com/vgnt/transport-portal/internal/services"
	"github.com/vgnt/transport-portal/pkg/geo"
)

// TripController starts and stops the driver's trip
type TripController interface {
	Start(ctx context.Context, driver string) (services.TrackerSnapshot, error)
	Stop(ctx context.Context, driver string) (services.TrackerSnapshot, error)
	Snapshot() services.TrackerSnapshot
}

// FixReceiver accepts fixes posted by the driver's device
type FixReceiver interface {
	Push(fix location.Fix) error
	Fail(reason string)
}

// DriverHandler handles the driver's trip controls and boarding list
type DriverHandler struct {
	trip   TripController
	fixes  FixReceiver // nil when fixes arrive over MQTT
	roster *services.AttendanceRoster
	logger *logrus.Logger
}

// NewDriverHandler creates a new driver handler
func NewDriverHandler(trip TripController, fixes FixReceiver, roster *services.AttendanceRoster, logger *logrus.Logger) *DriverHandler {
	return &DriverHandler{trip: trip, fixes: fixes, roster: roster, logger: logger}
}

// LocationFixRequest is one GPS reading from the driver's phone
type LocationFixRequest struct {
	Latitude  *float64 `json:"lat" binding:"required"`
	Longitude *float64 `json:"lng" binding:"required"`
	Accuracy  float64  `json:"accuracy"`
	Timestamp int64    `json:"timestamp"` // unix milliseconds, 0 for now
}

// LocationErrorRequest reports that the device cannot produce a position
type LocationErrorRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// GetTrip handles GET /api/v1/driver/trip
func (h *DriverHandler) GetTrip(c *gin.Context) {
	c.JSON(http.StatusOK, tripResponse(h.trip.Snapshot()))
}

// StartTrip handles POST /api/v1/driver/trip/start
func (h *DriverHandler) StartTrip(c *gin.Context) {
	sc := middleware.MustGetSession(c)

	snap, err := h.trip.Start(c.Request.Context(), sc.Profile.Name)
	switch {
	case errors.Is(err, services.ErrTripAlreadyActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "trip_active",
			Message: "A trip is already running",
		})
		return
	case errors.Is(err, services.ErrLocationUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "location_unavailable",
			"message": "Could not start GPS tracking",
			"trip":    tripResponse(h.trip.Snapshot()),
		})
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to start trip")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "start_failed",
			Message: "Failed to start trip",
		})
		return
	}

	c.JSON(http.StatusOK, tripResponse(snap))
}

// StopTrip handles POST /api/v1/driver/trip/stop
func (h *DriverHandler) StopTrip(c *gin.Context) {
	sc := middleware.MustGetSession(c)

	snap, err := h.trip.Stop(c.Request.Context(), sc.Profile.Name)
	if errors.Is(err, services.ErrNoActiveTrip) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "no_active_trip",
			Message: "No trip is running",
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to stop trip")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "stop_failed",
			Message: "Failed to stop trip",
		})
		return
	}

	c.JSON(http.StatusOK, tripResponse(snap))
}

// PushLocation handles POST /api/v1/driver/location
func (h *DriverHandler) PushLocation(c *gin.Context) {
	if h.fixes == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{
			Error:   "push_disabled",
			Message: "Location is received from the GPS device",
		})
		return
	}

	var req LocationFixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "lat and lng are required",
		})
		return
	}

	fix := location.Fix{
		Coordinate: geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		Accuracy:   req.Accuracy,
	}
	if req.Timestamp > 0 {
		fix.Timestamp = time.UnixMilli(req.Timestamp)
	}

	err := h.fixes.Push(fix)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, tripResponse(h.trip.Snapshot()))
	case errors.Is(err, location.ErrNotWatching):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "not_tracking",
			Message: "Start the trip before sending locations",
		})
	case errors.Is(err, location.ErrStaleFix):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "stale_fix",
			Message: "Location is too old",
		})
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_fix",
			Message: err.Error(),
		})
	}
}

// ReportLocationError handles POST /api/v1/driver/location/error
func (h *DriverHandler) ReportLocationError(c *gin.Context) {
	if h.fixes == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{
			Error:   "push_disabled",
			Message: "Location is received from the GPS device",
		})
		return
	}

	var req LocationErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "reason is required",
		})
		return
	}

	h.fixes.Fail(req.Reason)
	c.JSON(http.StatusOK, tripResponse(h.trip.Snapshot()))
}

// ToggleAttendance handles POST /api/v1/driver/attendance/:id/toggle
func (h *DriverHandler) ToggleAttendance(c *gin.Context) {
	entry, err := h.roster.Toggle(c.Param("id"))
	if errors.Is(err, services.ErrUnknownStudent) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Student is not on today's list",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entry":  entry,
		"counts": h.roster.Counts(),
	})
}

// GetAttendance handles GET /api/v1/driver/attendance
func (h *DriverHandler) GetAttendance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"attendance": h.roster.List(),
		"counts":     h.roster.Counts(),
	})
}

func tripResponse(snap services.TrackerSnapshot) gin.H {
	return gin.H{
		"trip":  dashboard.NewTripView(snap),
		"stops": snap.Stops,
	}
}
