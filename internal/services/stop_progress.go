package services

import (
	"time"

	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/pkg/geo"
)

// Schedule windows, in minutes relative to now, used by the student timeline
const (
	scheduleGraceMinutes     = 5
	scheduleLookaheadMinutes = 15
)

// ResolveStops tags every stop with the bus's progress along the route.
// The stop nearest to current is next; stops before it are passed and stops
// after it are future. Ties go to the lowest index. The input order is kept
// and the input slice is not modified.
func ResolveStops(current geo.Coordinate, stops []models.Stop) []models.ResolvedStop {
	if len(stops) == 0 {
		return []models.ResolvedStop{}
	}

	nearest := 0
	best := geo.DistanceMeters(current, stops[0].Location)
	for i := 1; i < len(stops); i++ {
		d := geo.DistanceMeters(current, stops[i].Location)
		if d < best {
			best = d
			nearest = i
		}
	}

	resolved := make([]models.ResolvedStop, len(stops))
	for i, stop := range stops {
		status := models.StopStatusFuture
		switch {
		case i < nearest:
			status = models.StopStatusPassed
		case i == nearest:
			status = models.StopStatusNext
		}
		resolved[i] = models.ResolvedStop{Stop: stop, Status: status}
	}
	return resolved
}

// InitialProgress is the stop list shown before the first fix arrives:
// the first stop is next and the rest are future.
func InitialProgress(stops []models.Stop) []models.ResolvedStop {
	resolved := make([]models.ResolvedStop, len(stops))
	for i, stop := range stops {
		status := models.StopStatusFuture
		if i == 0 {
			status = models.StopStatusNext
		}
		resolved[i] = models.ResolvedStop{Stop: stop, Status: status}
	}
	return resolved
}

// BuildLocationReport snapshots the resolved progress for a fix.
// When no stop is tagged next the terminus name is reported instead.
func BuildLocationReport(current geo.Coordinate, resolved []models.ResolvedStop, terminusName string, now time.Time) models.LocationReport {
	report := models.LocationReport{
		Coordinate:    current,
		Timestamp:     now,
		NextStopName:  terminusName,
		PerStopStatus: make([]models.StopStatusEntry, 0, len(resolved)),
	}

	nextFound := false
	for _, rs := range resolved {
		switch rs.Status {
		case models.StopStatusPassed:
			report.PassedStopCount++
		case models.StopStatusNext:
			if !nextFound {
				report.NextStopName = rs.Name
				nextFound = true
			}
		}
		report.PerStopStatus = append(report.PerStopStatus, models.StopStatusEntry{
			StopID: rs.ID,
			Status: rs.Status,
		})
	}
	return report
}

// ScheduleStatus classifies a stop by its timetable alone: more than five
// minutes in the past is passed, up to fifteen minutes ahead is next.
func ScheduleStatus(scheduled models.TimeOfDay, now time.Time) models.StopStatus {
	nowMinutes := now.Hour()*60 + now.Minute()
	diff := int(scheduled) - nowMinutes
	switch {
	case diff < -scheduleGraceMinutes:
		return models.StopStatusPassed
	case diff <= scheduleLookaheadMinutes:
		return models.StopStatusNext
	default:
		return models.StopStatusFuture
	}
}

// BuildTimeline converts routes rows into the student timeline.
// Rows with an unreadable arrival time are skipped.
func BuildTimeline(rows []models.RouteStopRow, now time.Time) []models.RouteStopView {
	views := make([]models.RouteStopView, 0, len(rows))
	for _, row := range rows {
		t, err := models.ParseTimeOfDay(row.ArrivalTime)
		if err != nil {
			continue
		}
		views = append(views, models.RouteStopView{
			Name:   row.StopName,
			Time:   t.Display(),
			Status: ScheduleStatus(t, now),
		})
	}
	return views
}

// TimelineFromStops builds the student timeline from the configured route
func TimelineFromStops(stops []models.Stop, now time.Time) []models.RouteStopView {
	views := make([]models.RouteStopView, 0, len(stops))
	for _, stop := range stops {
		views = append(views, models.RouteStopView{
			Name:   stop.Name,
			Time:   stop.ScheduledTime.Display(),
			Status: ScheduleStatus(stop.ScheduledTime, now),
		})
	}
	return views
}
