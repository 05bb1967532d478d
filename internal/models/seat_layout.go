package models

// SeatLayout is the visual layout of the bus for frontend display
type SeatLayout struct {
	TotalRows     int       `json:"total_rows"`
	TotalSeats    int       `json:"total_seats"`
	OccupiedSeats int       `json:"occupied_seats"`
	Rows          []SeatRow `json:"rows"`
}

// SeatRow is a single row: two seats left of the aisle, two right
type SeatRow struct {
	RowNumber  int        `json:"row_number"`
	LeftSeats  []SeatInfo `json:"left_seats"`
	RightSeats []SeatInfo `json:"right_seats"`
}

// SeatInfo is one seat with its occupancy
type SeatInfo struct {
	SeatNumber   string `json:"seat_number"`
	IsWindowSeat bool   `json:"is_window_seat"`
	IsAisleSeat  bool   `json:"is_aisle_seat"`
	Occupied     bool   `json:"occupied"`
	Mine         bool   `json:"mine,omitempty"`
}
