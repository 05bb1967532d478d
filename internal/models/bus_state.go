package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/vgnt/transport-portal/pkg/geo"
)

// BusStatus is the persisted activity flag of a bus
type BusStatus string

const (
	BusStatusActive   BusStatus = "active"
	BusStatusInactive BusStatus = "inactive"
)

// GPSStatus is the driver-side state of the location watch
type GPSStatus string

const (
	GPSStatusIdle     GPSStatus = "idle"
	GPSStatusLocating GPSStatus = "locating"
	GPSStatusActive   GPSStatus = "active"
	GPSStatusError    GPSStatus = "error"
)

// LocationReport is the snapshot published for every accepted fix.
// The JSON layout matches what the student dashboards already read from
// buses.current_location.
type LocationReport struct {
	geo.Coordinate
	Timestamp       time.Time         `json:"timestamp"`
	NextStopName    string            `json:"nextStop"`
	PassedStopCount int               `json:"passedStops"`
	PerStopStatus   []StopStatusEntry `json:"stopStatuses"`
}

// Value implements the driver.Valuer interface.
// The report is sent as JSON text so both pgx and lib/pq accept it for jsonb.
func (r LocationReport) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (r *LocationReport) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(data, r)
}

// BusState is a row of the buses table
type BusState struct {
	ID              string          `json:"id" db:"id"`
	Status          BusStatus       `json:"status" db:"status"`
	CurrentLocation *LocationReport `json:"current_location" db:"current_location"`
}

// Active reports whether the bus is on a trip
func (b *BusState) Active() bool {
	return b.Status == BusStatusActive
}

// MapsURL links a location to Google Maps
func MapsURL(c geo.Coordinate) string {
	return "https://www.google.com/maps?q=" + c.String()
}

// TripEventType names a trip lifecycle event
type TripEventType string

const (
	TripEventStarted  TripEventType = "trip_started"
	TripEventStopped  TripEventType = "trip_stopped"
	TripEventGPSError TripEventType = "gps_error"
)

// TripEvent is published when a trip changes state
type TripEvent struct {
	ID         string        `json:"id"`
	Type       TripEventType `json:"type"`
	BusID      string        `json:"bus_id"`
	TripID     string        `json:"trip_id"`
	Driver     string        `json:"driver,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
