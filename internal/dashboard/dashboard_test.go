package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnt/transport-portal/internal/config"
	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/internal/services"
	"github.com/vgnt/transport-portal/internal/session"
	"github.com/vgnt/transport-portal/pkg/geo"
)

var errStore = errors.New("store unavailable")

type fakeStudents struct {
	byRoll map[string]models.StudentRecord
	err    error
}

func (f *fakeStudents) GetByRoll(ctx context.Context, roll string) (*models.StudentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.byRoll[roll]
	if !ok {
		return nil, errors.New("not found")
	}
	return &rec, nil
}

func (f *fakeStudents) List(ctx context.Context) ([]models.StudentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.StudentRecord{}
	for _, roll := range []string{"21891A0501", "21891A0502", "21891A0503"} {
		if rec, ok := f.byRoll[roll]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeBuses struct {
	state  *models.BusState
	onTrip int
	err    error
}

func (f *fakeBuses) GetState(ctx context.Context, busID string) (*models.BusState, error) {
	return f.state, f.err
}

func (f *fakeBuses) CountActive(ctx context.Context) (int, error) {
	return f.onTrip, f.err
}

type fakeRoutes struct {
	rows []models.RouteStopRow
	err  error
}

func (f *fakeRoutes) ListStops(ctx context.Context, busID string) ([]models.RouteStopRow, error) {
	return f.rows, f.err
}

type fakeSeats struct {
	occupied []string
	err      error
}

func (f *fakeSeats) Layout(ctx context.Context, mine string) (models.SeatLayout, error) {
	if f.err != nil {
		return services.BuildSeatLayout(nil, mine), f.err
	}
	return services.BuildSeatLayout(f.occupied, mine), nil
}

type fakeTrip struct {
	snap services.TrackerSnapshot
}

func (f *fakeTrip) Snapshot() services.TrackerSnapshot { return f.snap }

func seat(s string) *string { return &s }

func testDeps() *Deps {
	students := &fakeStudents{byRoll: map[string]models.StudentRecord{
		"21891A0501": {Name: "RAVI KUMAR", StudentID: "21891A0501", AssignedSeat: seat("R2-L1"), TotalFee: 18000, PaidAmount: 18000},
		"21891A0502": {Name: "SNEHA REDDY", StudentID: "21891A0502", AssignedSeat: seat("R3-R2"), TotalFee: 18000, PaidAmount: 9000, PendingAmount: 9000},
		"21891A0503": {Name: "AMIT SHARMA", StudentID: "21891A0503", TotalFee: 18000, PendingAmount: 18000},
	}}

	report := &models.LocationReport{
		Coordinate:      geo.Coordinate{Latitude: 17.3740, Longitude: 78.4810},
		NextStopName:    "GM Goud",
		PassedStopCount: 1,
	}

	return &Deps{
		Bus: config.BusConfig{
			ID:          config.DefaultBusID,
			Number:      "AP39 UW 4074",
			RouteName:   "Rock Hills Colony Route",
			DriverName:  "CH Srinu",
			DriverPhone: "+91 97055 41626",
			Capacity:    57,
		},
		Stops:    config.DefaultStops(),
		Students: students,
		Buses:    &fakeBuses{state: &models.BusState{ID: config.DefaultBusID, Status: models.BusStatusActive, CurrentLocation: report}, onTrip: 1},
		Routes: &fakeRoutes{rows: []models.RouteStopRow{
			{StopName: "Rock Hills Colony", ArrivalTime: "07:15:00", StopOrder: 1},
			{StopName: "GM Goud", ArrivalTime: "07:25:00", StopOrder: 2},
			{StopName: "Clock Tower", ArrivalTime: "08:00:00", StopOrder: 3},
		}},
		Seats:  &fakeSeats{occupied: []string{"R2-L1", "R3-R2"}},
		Trip:   &fakeTrip{snap: services.TrackerSnapshot{Status: models.GPSStatusIdle, Stops: services.InitialProgress(config.DefaultStops())}},
		Roster: services.NewAttendanceRoster(services.DefaultRoster()),
		Now: func() time.Time {
			return time.Date(2026, 3, 2, 7, 20, 0, 0, time.Local)
		},
	}
}

func studentSession() session.Context {
	return session.Context{
		Profile: models.Profile{Name: "SNEHA REDDY", Roll: "21891A0502", Seat: "R3-R2", PendingAmount: 9000, Role: models.RoleStudent},
		Source:  session.SourceCookie,
	}
}

func TestFor_PicksDashboardByRole(t *testing.T) {
	deps := testDeps()

	for _, role := range []models.Role{models.RoleStudent, models.RoleDriver, models.RoleManagement} {
		d, err := For(session.Context{Profile: models.Profile{Role: role}}, deps)
		require.NoError(t, err)
		assert.Equal(t, role, d.Role())
	}

	_, err := For(session.Context{Profile: models.Profile{Role: "conductor"}}, deps)
	assert.Error(t, err)
}

func TestStudentDashboard(t *testing.T) {
	d, err := For(studentSession(), testDeps())
	require.NoError(t, err)

	v, err := d.View(context.Background())
	require.NoError(t, err)
	view := v.(StudentView)

	assert.False(t, view.Stale)
	assert.Equal(t, "SNEHA REDDY", view.Profile.Name)
	assert.Equal(t, models.FeeStatusPartiallyPaid, view.FeeStatus)
	assert.Equal(t, "AP39 UW 4074", view.Bus.Number)

	assert.True(t, view.Live.Active)
	require.NotNil(t, view.Live.Location)
	assert.Equal(t, "https://www.google.com/maps?q=17.374000,78.481000", view.Live.MapsURL)

	// 07:20: 07:15 is 5 minutes back, 07:25 is due, 08:00 is later
	require.Len(t, view.Route, 3)
	assert.Equal(t, "07:15 AM", view.Route[0].Time)
	assert.Equal(t, models.StopStatusNext, view.Route[0].Status)
	assert.Equal(t, models.StopStatusNext, view.Route[1].Status)
	assert.Equal(t, models.StopStatusFuture, view.Route[2].Status)

	assert.Equal(t, 2, view.Seats.OccupiedSeats)
	assert.True(t, view.Seats.Rows[2].RightSeats[1].Mine)
}

func TestStudentDashboard_FallsBackWhenStoreFails(t *testing.T) {
	deps := testDeps()
	deps.Students = &fakeStudents{err: errStore}
	deps.Buses = &fakeBuses{err: errStore}
	deps.Routes = &fakeRoutes{err: errStore}
	deps.Seats = &fakeSeats{err: errStore}

	view := (&StudentDashboard{session: studentSession(), deps: deps}).Build(context.Background())

	assert.True(t, view.Stale)
	assert.Equal(t, studentSession().Profile, view.Profile)
	assert.False(t, view.Live.Active)
	assert.Len(t, view.Route, len(config.DefaultStops()))
	assert.Equal(t, 48, view.Seats.TotalSeats)
}

func TestStudentDashboard_EmptyRoutesUseConfiguredStops(t *testing.T) {
	deps := testDeps()
	deps.Routes = &fakeRoutes{}

	view := (&StudentDashboard{session: studentSession(), deps: deps}).Build(context.Background())

	assert.False(t, view.Stale)
	require.Len(t, view.Route, 9)
	assert.Equal(t, "VGNT College", view.Route[8].Name)
}

func TestDriverDashboard(t *testing.T) {
	deps := testDeps()
	stops := services.ResolveStops(geo.Coordinate{Latitude: 17.3846, Longitude: 78.4921}, deps.Stops)
	deps.Trip = &fakeTrip{snap: services.TrackerSnapshot{
		Status: models.GPSStatusActive,
		TripID: "trip-1",
		Stops:  stops,
		LastReport: &models.LocationReport{
			Coordinate: geo.Coordinate{Latitude: 17.3846, Longitude: 78.4921},
		},
	}}

	d, err := For(session.Context{Profile: models.Profile{Name: "CH Srinu", Role: models.RoleDriver}}, deps)
	require.NoError(t, err)
	v, err := d.View(context.Background())
	require.NoError(t, err)
	view := v.(DriverView)

	assert.Equal(t, models.GPSStatusActive, view.Trip.GPSStatus)
	assert.Equal(t, 3, view.Trip.Passed)
	assert.Equal(t, 9, view.Trip.Total)
	assert.Equal(t, 5, view.Trip.Ahead)
	assert.Equal(t, "3 / 9", view.Trip.StopsDone)
	require.NotNil(t, view.Trip.NextStop)
	assert.Equal(t, NextStop{Name: "Pedda Banda", Time: "07:45 AM"}, *view.Trip.NextStop)
	assert.NotEmpty(t, view.Trip.MapsURL)

	assert.Len(t, view.Attendance, 5)
	assert.Equal(t, services.AttendanceCounts{Present: 2, Pending: 2, Absent: 1}, view.Counts)
}

func TestNewTripView_Idle(t *testing.T) {
	view := NewTripView(services.TrackerSnapshot{
		Status: models.GPSStatusIdle,
		Stops:  services.InitialProgress(config.DefaultStops()),
	})

	assert.Equal(t, 0, view.Passed)
	assert.Equal(t, 8, view.Ahead)
	assert.Equal(t, "Rock Hills Colony", view.NextStop.Name)
	assert.Empty(t, view.MapsURL)
}

func TestManagementDashboard(t *testing.T) {
	deps := testDeps()
	deps.Trip = &fakeTrip{snap: services.TrackerSnapshot{Status: models.GPSStatusError}}

	d := &ManagementDashboard{session: session.Context{Profile: models.Profile{Role: models.RoleManagement}}, deps: deps}
	view := d.Build(context.Background(), "")

	assert.False(t, view.Stale)
	assert.Equal(t, Totals{Students: 3, Buses: 1, BusesOnTrip: 1, PendingFees: 27000, ActiveAlerts: 1}, view.Totals)
	require.Len(t, view.Students, 3)
	assert.Equal(t, models.FeeStatusPaid, view.Students[0].FeeStatus)
	assert.Equal(t, models.FeeStatusPending, view.Students[1].FeeStatus)

	require.Len(t, view.Fleet, 1)
	assert.Equal(t, models.BusStatusActive, view.Fleet[0].Status)
	assert.Equal(t, "CH Srinu", view.Fleet[0].DriverName)
	assert.Equal(t, 2, view.Seats.OccupiedSeats)
}

func TestManagementDashboard_Search(t *testing.T) {
	d := &ManagementDashboard{deps: testDeps()}

	byName, stale := d.Students(context.Background(), "reddy")
	assert.False(t, stale)
	require.Len(t, byName, 1)
	assert.Equal(t, "21891A0502", byName[0].StudentID)

	byRoll, _ := d.Students(context.Background(), "a0503")
	require.Len(t, byRoll, 1)
	assert.Equal(t, "AMIT SHARMA", byRoll[0].Name)

	none, _ := d.Students(context.Background(), "nobody")
	assert.Empty(t, none)
}

func TestManagementDashboard_StoreFailure(t *testing.T) {
	deps := testDeps()
	deps.Students = &fakeStudents{err: errStore}
	deps.Buses = &fakeBuses{err: errStore}

	view := (&ManagementDashboard{deps: deps}).Build(context.Background(), "")

	assert.True(t, view.Stale)
	assert.Equal(t, 0, view.Totals.Students)
	assert.Equal(t, 0, view.Totals.BusesOnTrip)
	assert.Empty(t, view.Students)
	require.Len(t, view.Fleet, 1)
	assert.Equal(t, models.BusStatusInactive, view.Fleet[0].Status)
}
