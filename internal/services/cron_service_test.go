package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnt/transport-portal/internal/config"
	"github.com/vgnt/transport-portal/internal/location"
	"github.com/vgnt/transport-portal/internal/models"
)

func testCronConfig() config.CronConfig {
	return config.CronConfig{Enabled: true, RosterResetSpec: "0 0 5 * * *", TripCutoffSpec: "0 0 22 * * *"}
}

func TestCronService_Jobs(t *testing.T) {
	f := newTrackerFixture(location.WatchOptions{})
	ctx := context.Background()

	roster := NewAttendanceRoster(DefaultRoster())
	_, err := roster.Toggle("S002")
	require.NoError(t, err)
	assert.Equal(t, 3, roster.Counts().Present)

	_, err = f.tracker.Start(ctx, "CH Srinu")
	require.NoError(t, err)

	svc := NewCronService(testCronConfig(), f.tracker, roster, quietLogger())
	svc.resetRosterJob()
	svc.stopForgottenTripJob()

	assert.Equal(t, AttendanceCounts{Present: 2, Pending: 2, Absent: 1}, roster.Counts())
	assert.Equal(t, models.GPSStatusIdle, f.tracker.Snapshot().Status)
	assert.False(t, f.source.Watching())
	assert.Equal(t, []models.TripEventType{models.TripEventStarted, models.TripEventStopped}, f.events.types())
}

func TestCronService_CutoffWhenIdle(t *testing.T) {
	f := newTrackerFixture(location.WatchOptions{})

	svc := NewCronService(testCronConfig(), f.tracker, NewAttendanceRoster(nil), quietLogger())
	svc.stopForgottenTripJob()

	assert.Empty(t, f.sink.callLog())
	assert.Empty(t, f.events.types())
}

func TestCronService_StartAndStop(t *testing.T) {
	f := newTrackerFixture(location.WatchOptions{})
	svc := NewCronService(testCronConfig(), f.tracker, NewAttendanceRoster(nil), quietLogger())

	require.NoError(t, svc.Start())
	status := svc.JobStatus()
	assert.Equal(t, 2, status["job_count"])
	assert.Equal(t, true, status["running"])
	svc.Stop()
}

func TestCronService_InvalidSchedule(t *testing.T) {
	f := newTrackerFixture(location.WatchOptions{})
	cfg := testCronConfig()
	cfg.TripCutoffSpec = "every evening"

	svc := NewCronService(cfg, f.tracker, NewAttendanceRoster(nil), quietLogger())
	err := svc.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trip cutoff")
}

func TestAttendanceRoster_Reset(t *testing.T) {
	roster := NewAttendanceRoster(DefaultRoster())
	roster.Reset(nil)
	assert.Empty(t, roster.List())

	roster.Reset(DefaultRoster())
	assert.Len(t, roster.List(), 5)
}
