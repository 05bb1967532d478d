package dashboard

import (
	"context"
	"fmt"

	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/internal/services"
	"github.com/vgnt/transport-portal/internal/session"
)

// NextStop is the stop the bus is heading to
type NextStop struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

// TripView summarises the running trip
type TripView struct {
	GPSStatus models.GPSStatus       `json:"gps_status"`
	TripID    string                 `json:"trip_id,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Location  *models.LocationReport `json:"location,omitempty"`
	MapsURL   string                 `json:"maps_url,omitempty"`
	StopsDone string                 `json:"stops_done"`
	Passed    int                    `json:"passed"`
	Total     int                    `json:"total"`
	Ahead     int                    `json:"ahead"`
	NextStop  *NextStop              `json:"next_stop,omitempty"`
}

// DriverView is the driver dashboard
type DriverView struct {
	Role       models.Role               `json:"role"`
	Stale      bool                      `json:"stale"`
	Driver     models.Profile            `json:"driver"`
	Bus        BusInfo                   `json:"bus"`
	Trip       TripView                  `json:"trip"`
	Stops      []models.ResolvedStop     `json:"stops"`
	Attendance []models.AttendanceEntry  `json:"attendance"`
	Counts     services.AttendanceCounts `json:"attendance_counts"`
}

// DriverDashboard shows the driver trip progress and the boarding list
type DriverDashboard struct {
	session session.Context
	deps    *Deps
}

// NewDriverDashboard creates the driver dashboard for a session
func NewDriverDashboard(sc session.Context, deps *Deps) *DriverDashboard {
	return &DriverDashboard{session: sc, deps: deps}
}

// Role implements Dashboard
func (d *DriverDashboard) Role() models.Role { return models.RoleDriver }

// View implements Dashboard
func (d *DriverDashboard) View(ctx context.Context) (interface{}, error) {
	return d.Build(), nil
}

// Build assembles the view from the tracker and the roster. Nothing here
// reads the store.
func (d *DriverDashboard) Build() DriverView {
	snap := d.deps.Trip.Snapshot()

	view := DriverView{
		Role:       models.RoleDriver,
		Driver:     d.session.Profile,
		Bus:        busInfo(d.deps.Bus),
		Trip:       NewTripView(snap),
		Stops:      snap.Stops,
		Attendance: d.deps.Roster.List(),
		Counts:     d.deps.Roster.Counts(),
	}
	return view
}

// NewTripView derives the progress counters from a tracker snapshot
func NewTripView(snap services.TrackerSnapshot) TripView {
	view := TripView{
		GPSStatus: snap.Status,
		TripID:    snap.TripID,
		Error:     snap.Error,
		Location:  snap.LastReport,
		Total:     len(snap.Stops),
	}
	if snap.LastReport != nil {
		view.MapsURL = models.MapsURL(snap.LastReport.Coordinate)
	}

	for _, s := range snap.Stops {
		switch s.Status {
		case models.StopStatusPassed:
			view.Passed++
		case models.StopStatusFuture:
			view.Ahead++
		case models.StopStatusNext:
			if view.NextStop == nil {
				view.NextStop = &NextStop{Name: s.Name, Time: s.ScheduledTime.Display()}
			}
		}
	}
	view.StopsDone = fmt.Sprintf("%d / %d", view.Passed, view.Total)
	return view
}
