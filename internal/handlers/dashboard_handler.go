package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/dashboard"
	"github.com/vgnt/transport-portal/internal/middleware"
)

// DashboardHandler serves the signed-in role's dashboard
type DashboardHandler struct {
	deps   *dashboard.Deps
	logger *logrus.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(deps *dashboard.Deps, logger *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{deps: deps, logger: logger}
}

// Get handles GET /api/v1/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	sc := middleware.MustGetSession(c)

	d, err := dashboard.For(sc, h.deps)
	if err != nil {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "No dashboard for this session",
		})
		return
	}

	view, err := d.View(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).WithField("role", d.Role()).Error("Failed to build dashboard")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "dashboard_failed",
			Message: "Failed to load dashboard",
		})
		return
	}

	c.JSON(http.StatusOK, view)
}
