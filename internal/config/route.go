package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/pkg/geo"
)

// DefaultBusID is the bus row the portal tracks when BUS_ID is unset
const DefaultBusID = "ddcd5b3a-fd05-4bbc-96e6-eeac9b19141f"

// DefaultStops returns the Rock Hills Colony route in boarding order
func DefaultStops() []models.Stop {
	return []models.Stop{
		{ID: 1, Name: "Rock Hills Colony", Location: geo.Coordinate{Latitude: 17.3688, Longitude: 78.4765}, ScheduledTime: 7*60 + 15, ExpectedPickupCount: 12},
		{ID: 2, Name: "GM Goud", Location: geo.Coordinate{Latitude: 17.3740, Longitude: 78.4810}, ScheduledTime: 7*60 + 25, ExpectedPickupCount: 8},
		{ID: 3, Name: "Komatireddy Prathik Reddy College", Location: geo.Coordinate{Latitude: 17.3792, Longitude: 78.4870}, ScheduledTime: 7*60 + 35, ExpectedPickupCount: 5},
		{ID: 4, Name: "Pedda Banda", Location: geo.Coordinate{Latitude: 17.3845, Longitude: 78.4920}, ScheduledTime: 7*60 + 45, ExpectedPickupCount: 15},
		{ID: 5, Name: "Clock Tower", Location: geo.Coordinate{Latitude: 17.3900, Longitude: 78.4960}, ScheduledTime: 8 * 60, ExpectedPickupCount: 20},
		{ID: 6, Name: "VT Colony", Location: geo.Coordinate{Latitude: 17.3960, Longitude: 78.5010}, ScheduledTime: 8*60 + 15, ExpectedPickupCount: 10},
		{ID: 7, Name: "Bandaru Gardens Road", Location: geo.Coordinate{Latitude: 17.4020, Longitude: 78.5060}, ScheduledTime: 8*60 + 30, ExpectedPickupCount: 5},
		{ID: 8, Name: "Deshmukhi", Location: geo.Coordinate{Latitude: 17.4080, Longitude: 78.5110}, ScheduledTime: 8*60 + 40, ExpectedPickupCount: 3},
		{ID: 9, Name: "VGNT College", Location: geo.Coordinate{Latitude: 17.4150, Longitude: 78.5180}, ScheduledTime: 9 * 60, ExpectedPickupCount: 0},
	}
}

type routeFile struct {
	Stops []models.Stop `yaml:"stops"`
}

// LoadStops returns the stop list from path, or DefaultStops when path is empty
func LoadStops(path string) ([]models.Stop, error) {
	if path == "" {
		return DefaultStops(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}
	return ParseStops(data)
}

// ParseStops decodes a YAML stop list and checks every stop
func ParseStops(data []byte) ([]models.Stop, error) {
	var rf routeFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse route file: %w", err)
	}
	if len(rf.Stops) == 0 {
		return nil, fmt.Errorf("route file has no stops")
	}

	seen := make(map[int]bool, len(rf.Stops))
	for i, stop := range rf.Stops {
		if stop.Name == "" {
			return nil, fmt.Errorf("stop %d: name is required", i+1)
		}
		if seen[stop.ID] {
			return nil, fmt.Errorf("stop %d: duplicate id %d", i+1, stop.ID)
		}
		seen[stop.ID] = true
		if err := stop.Location.Validate(); err != nil {
			return nil, fmt.Errorf("stop %d: %w", i+1, err)
		}
		if stop.ExpectedPickupCount < 0 {
			return nil, fmt.Errorf("stop %d: pickups must not be negative", i+1)
		}
	}
	return rf.Stops, nil
}
