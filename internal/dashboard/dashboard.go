// Package dashboard builds the per-role dashboard view models. The role is
// chosen once, when the dashboard is constructed from the session context.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/config"
	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/internal/services"
	"github.com/vgnt/transport-portal/internal/session"
)

// StudentStore reads student rows
type StudentStore interface {
	GetByRoll(ctx context.Context, roll string) (*models.StudentRecord, error)
	List(ctx context.Context) ([]models.StudentRecord, error)
}

// BusStore reads the live bus row
type BusStore interface {
	GetState(ctx context.Context, busID string) (*models.BusState, error)
	CountActive(ctx context.Context) (int, error)
}

// RouteStore reads the scheduled stops of a bus
type RouteStore interface {
	ListStops(ctx context.Context, busID string) ([]models.RouteStopRow, error)
}

// SeatMap builds the seat layout
type SeatMap interface {
	Layout(ctx context.Context, mine string) (models.SeatLayout, error)
}

// TripState exposes the driver's trip progress
type TripState interface {
	Snapshot() services.TrackerSnapshot
}

// Deps are the shared collaborators every dashboard draws from
type Deps struct {
	Bus      config.BusConfig
	Stops    []models.Stop
	Students StudentStore
	Buses    BusStore
	Routes   RouteStore
	Seats    SeatMap
	Trip     TripState
	Roster   *services.AttendanceRoster
	Logger   *logrus.Logger
	Now      func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dashboard is one role's view of the system
type Dashboard interface {
	Role() models.Role
	View(ctx context.Context) (interface{}, error)
}

// For returns the dashboard matching the session's role
func For(sc session.Context, deps *Deps) (Dashboard, error) {
	switch sc.Role() {
	case models.RoleStudent:
		return NewStudentDashboard(sc, deps), nil
	case models.RoleDriver:
		return NewDriverDashboard(sc, deps), nil
	case models.RoleManagement:
		return NewManagementDashboard(sc, deps), nil
	default:
		return nil, fmt.Errorf("no dashboard for role %q", sc.Role())
	}
}

// BusInfo is the static description of the bus
type BusInfo struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	RouteName   string `json:"route_name"`
	DriverName  string `json:"driver_name"`
	DriverPhone string `json:"driver_phone"`
	Capacity    int    `json:"capacity"`
}

func busInfo(cfg config.BusConfig) BusInfo {
	return BusInfo{
		ID:          cfg.ID,
		Number:      cfg.Number,
		RouteName:   cfg.RouteName,
		DriverName:  cfg.DriverName,
		DriverPhone: cfg.DriverPhone,
		Capacity:    cfg.Capacity,
	}
}

// LiveBus is the bus position as students see it
type LiveBus struct {
	Active   bool                   `json:"active"`
	Location *models.LocationReport `json:"location,omitempty"`
	MapsURL  string                 `json:"maps_url,omitempty"`
}

// NewLiveBus converts a stored bus row into the live view
func NewLiveBus(state *models.BusState) LiveBus {
	if state == nil {
		return LiveBus{}
	}
	live := LiveBus{Active: state.Active(), Location: state.CurrentLocation}
	if live.Location != nil {
		live.MapsURL = models.MapsURL(live.Location.Coordinate)
	}
	return live
}

// storeFailed logs a failed read; the caller falls back and marks the view stale
func (d *Deps) storeFailed(err error, what string) {
	if d.Logger == nil {
		return
	}
	d.Logger.WithError(err).WithField("read", what).Warn("Dashboard read failed, using fallback")
}
