package dashboard

import (
	"context"
	"strings"

	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/internal/session"
)

// Totals are the headline counters on the management overview
type Totals struct {
	Students     int     `json:"students"`
	Buses        int     `json:"buses"`
	BusesOnTrip  int     `json:"buses_on_trip"`
	PendingFees  float64 `json:"pending_fees"`
	ActiveAlerts int     `json:"active_alerts"`
}

// FleetEntry is one bus in the fleet list
type FleetEntry struct {
	BusInfo
	Status    models.BusStatus `json:"status"`
	GPSStatus models.GPSStatus `json:"gps_status"`
	Live      LiveBus          `json:"live"`
}

// ManagementView is the management dashboard
type ManagementView struct {
	Role     models.Role             `json:"role"`
	Stale    bool                    `json:"stale"`
	Totals   Totals                  `json:"totals"`
	Students []models.StudentSummary `json:"students"`
	Fleet    []FleetEntry            `json:"fleet"`
	Seats    models.SeatLayout       `json:"seats"`
}

// ManagementDashboard shows fleet and fee totals
type ManagementDashboard struct {
	session session.Context
	deps    *Deps
}

// NewManagementDashboard creates the management dashboard for a session
func NewManagementDashboard(sc session.Context, deps *Deps) *ManagementDashboard {
	return &ManagementDashboard{session: sc, deps: deps}
}

// Role implements Dashboard
func (d *ManagementDashboard) Role() models.Role { return models.RoleManagement }

// View implements Dashboard
func (d *ManagementDashboard) View(ctx context.Context) (interface{}, error) {
	return d.Build(ctx, ""), nil
}

// Build assembles the view, listing only students matching query
func (d *ManagementDashboard) Build(ctx context.Context, query string) ManagementView {
	view := ManagementView{Role: models.RoleManagement}

	records, err := d.deps.Students.List(ctx)
	if err != nil {
		d.deps.storeFailed(err, "students")
		view.Stale = true
		records = nil
	}

	view.Totals.Students = len(records)
	for _, r := range records {
		view.Totals.PendingFees += r.PendingAmount
	}
	view.Students = FilterStudents(Summaries(records), query)

	fleet, stale := d.fleet(ctx)
	view.Fleet = fleet
	view.Stale = view.Stale || stale
	view.Totals.Buses = len(fleet)
	if onTrip, err := d.deps.Buses.CountActive(ctx); err != nil {
		d.deps.storeFailed(err, "active buses")
		view.Stale = true
	} else {
		view.Totals.BusesOnTrip = onTrip
	}
	for _, bus := range fleet {
		if bus.GPSStatus == models.GPSStatusError {
			view.Totals.ActiveAlerts++
		}
	}

	seats, err := d.deps.Seats.Layout(ctx, "")
	if err != nil {
		d.deps.storeFailed(err, "seats")
		view.Stale = true
	}
	view.Seats = seats

	return view
}

// Students returns the student list matching query
func (d *ManagementDashboard) Students(ctx context.Context, query string) ([]models.StudentSummary, bool) {
	records, err := d.deps.Students.List(ctx)
	if err != nil {
		d.deps.storeFailed(err, "students")
		return []models.StudentSummary{}, true
	}
	return FilterStudents(Summaries(records), query), false
}

// Fleet returns the configured bus merged with its live state
func (d *ManagementDashboard) Fleet(ctx context.Context) ([]FleetEntry, bool) {
	return d.fleet(ctx)
}

func (d *ManagementDashboard) fleet(ctx context.Context) ([]FleetEntry, bool) {
	entry := FleetEntry{
		BusInfo:   busInfo(d.deps.Bus),
		Status:    models.BusStatusInactive,
		GPSStatus: d.deps.Trip.Snapshot().Status,
	}

	state, err := d.deps.Buses.GetState(ctx, d.deps.Bus.ID)
	if err != nil {
		d.deps.storeFailed(err, "bus")
		return []FleetEntry{entry}, true
	}
	entry.Status = state.Status
	entry.Live = NewLiveBus(state)
	return []FleetEntry{entry}, false
}

// Summaries tags every record with its management fee status
func Summaries(records []models.StudentRecord) []models.StudentSummary {
	out := make([]models.StudentSummary, 0, len(records))
	for _, r := range records {
		out = append(out, models.StudentSummary{
			StudentRecord: r,
			FeeStatus:     models.ManagementFeeStatus(r.PendingAmount),
		})
	}
	return out
}

// FilterStudents keeps students whose name or roll contains query,
// ignoring case. An empty query keeps everyone.
func FilterStudents(students []models.StudentSummary, query string) []models.StudentSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return students
	}

	out := make([]models.StudentSummary, 0, len(students))
	for _, s := range students {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.StudentID), q) {
			out = append(out, s)
		}
	}
	return out
}
