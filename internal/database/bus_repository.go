package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vgnt/transport-portal/internal/models"
)

// BusRepository handles database operations for buses
type BusRepository struct {
	db DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db DB) *BusRepository {
	return &BusRepository{db: db}
}

// GetState retrieves the live status and last location of a bus
func (r *BusRepository) GetState(ctx context.Context, busID string) (*models.BusState, error) {
	query := `
		SELECT id, status, current_location
		FROM buses
		WHERE id = $1
	`

	bus := &models.BusState{}
	err := r.db.GetContext(ctx, bus, query, busID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}
	return bus, nil
}

// UpdateLocation stores the latest report and marks the bus active
func (r *BusRepository) UpdateLocation(ctx context.Context, busID string, report models.LocationReport) error {
	query := `
		UPDATE buses
		SET current_location = $2::jsonb, status = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, busID, report, models.BusStatusActive)
	if err != nil {
		return fmt.Errorf("failed to update bus location: %w", err)
	}
	return requireRow(result)
}

// MarkInactive clears the location and marks the bus inactive
func (r *BusRepository) MarkInactive(ctx context.Context, busID string) error {
	query := `
		UPDATE buses
		SET current_location = NULL, status = $2
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, busID, models.BusStatusInactive)
	if err != nil {
		return fmt.Errorf("failed to mark bus inactive: %w", err)
	}
	return requireRow(result)
}

// CountActive returns how many buses are currently on a trip
func (r *BusRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM buses WHERE status = $1`
	if err := r.db.GetContext(ctx, &count, query, models.BusStatusActive); err != nil {
		return 0, fmt.Errorf("failed to count active buses: %w", err)
	}
	return count, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrBusNotFound
	}
	return nil
}
