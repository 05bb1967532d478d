package database

import (
	"context"
	"fmt"

	"github.com/vgnt/transport-portal/internal/models"
)

// RouteRepository reads the timetable of a bus from the routes table
type RouteRepository struct {
	db DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// ListStops returns the stops of a bus in boarding order
func (r *RouteRepository) ListStops(ctx context.Context, busID string) ([]models.RouteStopRow, error) {
	query := `
		SELECT stop_name, arrival_time::text AS arrival_time, stop_order
		FROM routes
		WHERE bus_id = $1
		ORDER BY stop_order ASC
	`

	rows := []models.RouteStopRow{}
	if err := r.db.SelectContext(ctx, &rows, query, busID); err != nil {
		return nil, fmt.Errorf("failed to list route stops: %w", err)
	}
	return rows, nil
}
