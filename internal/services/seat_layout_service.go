package services

import (
	"context"
	"fmt"

	"github.com/vgnt/transport-portal/internal/models"
)

const (
	seatRows    = 12
	seatsPerRow = 4
)

// SeatStore lists the seats students have been assigned
type SeatStore interface {
	ListAssignedSeats(ctx context.Context) ([]string, error)
}

// SeatLayoutService builds the bus seat map
type SeatLayoutService struct {
	store SeatStore
}

// NewSeatLayoutService creates a new SeatLayoutService
func NewSeatLayoutService(store SeatStore) *SeatLayoutService {
	return &SeatLayoutService{store: store}
}

// Layout returns the seat map with occupancy from the store. mine marks the
// caller's own seat and may be empty. On a store failure the layout is
// returned with no occupied seats along with the error.
func (s *SeatLayoutService) Layout(ctx context.Context, mine string) (models.SeatLayout, error) {
	occupied, err := s.store.ListAssignedSeats(ctx)
	if err != nil {
		return BuildSeatLayout(nil, mine), fmt.Errorf("failed to load seat occupancy: %w", err)
	}
	return BuildSeatLayout(occupied, mine), nil
}

// SeatID names the seat at pos (1-4, left to right) in row
func SeatID(row, pos int) string {
	if pos <= 2 {
		return fmt.Sprintf("R%d-L%d", row, pos)
	}
	return fmt.Sprintf("R%d-R%d", row, pos-2)
}

// BuildSeatLayout lays out 12 rows of two seats either side of the aisle.
// Seat ids in occupied that are not on the bus are ignored.
func BuildSeatLayout(occupied []string, mine string) models.SeatLayout {
	taken := make(map[string]bool, len(occupied))
	for _, id := range occupied {
		taken[id] = true
	}

	layout := models.SeatLayout{
		TotalRows:  seatRows,
		TotalSeats: seatRows * seatsPerRow,
		Rows:       make([]models.SeatRow, 0, seatRows),
	}

	for row := 1; row <= seatRows; row++ {
		r := models.SeatRow{RowNumber: row}
		for pos := 1; pos <= seatsPerRow; pos++ {
			id := SeatID(row, pos)
			seat := models.SeatInfo{
				SeatNumber:   id,
				IsWindowSeat: pos == 1 || pos == seatsPerRow,
				IsAisleSeat:  pos == 2 || pos == 3,
				Occupied:     taken[id],
				Mine:         mine != "" && id == mine,
			}
			if seat.Occupied {
				layout.OccupiedSeats++
			}
			if pos <= 2 {
				r.LeftSeats = append(r.LeftSeats, seat)
			} else {
				r.RightSeats = append(r.RightSeats, seat)
			}
		}
		layout.Rows = append(layout.Rows, r)
	}

	return layout
}
