package dashboard

import (
	"context"

	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/internal/services"
	"github.com/vgnt/transport-portal/internal/session"
)

// StudentView is the student dashboard
type StudentView struct {
	Role      models.Role            `json:"role"`
	Stale     bool                   `json:"stale"`
	Profile   models.Profile         `json:"profile"`
	FeeStatus models.FeeStatus       `json:"fee_status"`
	Bus       BusInfo                `json:"bus"`
	Live      LiveBus                `json:"live"`
	Route     []models.RouteStopView `json:"route"`
	Seats     models.SeatLayout      `json:"seats"`
}

// StudentDashboard shows a student their fees, the route timeline and where
// the bus is
type StudentDashboard struct {
	session session.Context
	deps    *Deps
}

// NewStudentDashboard creates the student dashboard for a session
func NewStudentDashboard(sc session.Context, deps *Deps) *StudentDashboard {
	return &StudentDashboard{session: sc, deps: deps}
}

// Role implements Dashboard
func (d *StudentDashboard) Role() models.Role { return models.RoleStudent }

// View implements Dashboard
func (d *StudentDashboard) View(ctx context.Context) (interface{}, error) {
	return d.Build(ctx), nil
}

// Build assembles the view. Failed reads fall back to the session profile
// and the configured route.
func (d *StudentDashboard) Build(ctx context.Context) StudentView {
	var stale bool
	view := StudentView{
		Role:    models.RoleStudent,
		Profile: d.profile(ctx, &stale),
		Bus:     busInfo(d.deps.Bus),
		Route:   d.route(ctx, &stale),
	}
	view.Stale = stale
	view.FeeStatus = models.StudentFeeStatus(view.Profile.PendingAmount)

	state, err := d.deps.Buses.GetState(ctx, d.deps.Bus.ID)
	if err != nil {
		d.deps.storeFailed(err, "bus")
		view.Stale = true
	}
	view.Live = NewLiveBus(state)

	seats, err := d.deps.Seats.Layout(ctx, view.Profile.Seat)
	if err != nil {
		d.deps.storeFailed(err, "seats")
		view.Stale = true
	}
	view.Seats = seats

	return view
}

func (d *StudentDashboard) profile(ctx context.Context, stale *bool) models.Profile {
	fallback := d.session.Profile
	if fallback.Roll == "" {
		return fallback
	}

	rec, err := d.deps.Students.GetByRoll(ctx, fallback.Roll)
	if err != nil {
		d.deps.storeFailed(err, "student")
		*stale = true
		return fallback
	}
	return rec.Profile()
}

func (d *StudentDashboard) route(ctx context.Context, stale *bool) []models.RouteStopView {
	now := d.deps.now()

	rows, err := d.deps.Routes.ListStops(ctx, d.deps.Bus.ID)
	if err != nil {
		d.deps.storeFailed(err, "route")
		*stale = true
		return services.TimelineFromStops(d.deps.Stops, now)
	}
	if len(rows) == 0 {
		return services.TimelineFromStops(d.deps.Stops, now)
	}
	return services.BuildTimeline(rows, now)
}
