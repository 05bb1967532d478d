package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vgnt/transport-portal/internal/dashboard"
	"github.com/vgnt/transport-portal/internal/middleware"
)

// ManagementHandler serves the management lists
type ManagementHandler struct {
	deps *dashboard.Deps
}

// NewManagementHandler creates a new management handler
func NewManagementHandler(deps *dashboard.Deps) *ManagementHandler {
	return &ManagementHandler{deps: deps}
}

func (h *ManagementHandler) dashboard(c *gin.Context) *dashboard.ManagementDashboard {
	return dashboard.NewManagementDashboard(middleware.MustGetSession(c), h.deps)
}

// ListStudents handles GET /api/v1/management/students?q=
func (h *ManagementHandler) ListStudents(c *gin.Context) {
	students, stale := h.dashboard(c).Students(c.Request.Context(), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"students": students,
		"count":    len(students),
		"stale":    stale,
	})
}

// ListFleet handles GET /api/v1/management/fleet
func (h *ManagementHandler) ListFleet(c *gin.Context) {
	fleet, stale := h.dashboard(c).Fleet(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"fleet": fleet,
		"stale": stale,
	})
}

// GetSeats handles GET /api/v1/management/seats
func (h *ManagementHandler) GetSeats(c *gin.Context) {
	layout, err := h.deps.Seats.Layout(c.Request.Context(), "")
	c.JSON(http.StatusOK, gin.H{
		"seats": layout,
		"stale": err != nil,
	})
}
