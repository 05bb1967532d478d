package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vgnt/transport-portal/pkg/geo"
)

// StopStatus is the progress of the bus relative to a stop
type StopStatus string

const (
	StopStatusPassed StopStatus = "passed"
	StopStatusNext   StopStatus = "next"
	StopStatusFuture StopStatus = "future"
)

// TimeOfDay is a scheduled wall-clock time, stored as minutes after midnight
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or the Postgres time form "HH:MM:SS"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// Hour returns the 24-hour clock hour
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute within the hour
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats the time as "HH:MM"
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Display formats the time for the dashboards, e.g. "07:15 AM"
func (t TimeOfDay) Display() string {
	h := t.Hour()
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	if h > 12 {
		h -= 12
	}
	return fmt.Sprintf("%02d:%02d %s", h, t.Minute(), period)
}

// MarshalText implements encoding.TextMarshaler
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Stop is a pickup point on the route
type Stop struct {
	ID                  int            `json:"id" yaml:"id"`
	Name                string         `json:"name" yaml:"name"`
	Location            geo.Coordinate `json:"location" yaml:"location"`
	ScheduledTime       TimeOfDay      `json:"scheduled_time" yaml:"time"`
	ExpectedPickupCount int            `json:"expected_pickups" yaml:"pickups"`
}

// ResolvedStop is a stop tagged with the bus's progress
type ResolvedStop struct {
	Stop
	Status StopStatus `json:"status"`
}

// StopStatusEntry is the per-stop status written into a location report
type StopStatusEntry struct {
	StopID int        `json:"id"`
	Status StopStatus `json:"status"`
}

// RouteStopRow is a row of the routes table
type RouteStopRow struct {
	StopName    string `json:"stop_name" db:"stop_name"`
	ArrivalTime string `json:"arrival_time" db:"arrival_time"`
	StopOrder   int    `json:"stop_order" db:"stop_order"`
}

// RouteStopView is a stop as shown on the student timeline
type RouteStopView struct {
	Name   string     `json:"name"`
	Time   string     `json:"time"`
	Status StopStatus `json:"status"`
}
