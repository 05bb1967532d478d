package services

import (
	"errors"
	"sync"

	"github.com/vgnt/transport-portal/internal/models"
)

// ErrUnknownStudent is returned when toggling a student not on the roster
var ErrUnknownStudent = errors.New("student not on roster")

// DefaultRoster is today's boarding list for the route
func DefaultRoster() []models.AttendanceEntry {
	return []models.AttendanceEntry{
		{StudentID: "S001", Name: "Ravi Kumar", StopName: "Rock Hills Colony", Status: models.AttendancePresent},
		{StudentID: "S002", Name: "Sneha Reddy", StopName: "Clock Tower", Status: models.AttendancePending},
		{StudentID: "S003", Name: "Amit Sharma", StopName: "VT Colony", Status: models.AttendancePending},
		{StudentID: "S004", Name: "Praveen J", StopName: "Rock Hills Colony", Status: models.AttendancePresent},
		{StudentID: "S005", Name: "Rahul V", StopName: "Pedda Banda", Status: models.AttendanceAbsent},
	}
}

// AttendanceCounts is the tally shown above the roster
type AttendanceCounts struct {
	Present int `json:"present"`
	Pending int `json:"pending"`
	Absent  int `json:"absent"`
}

// AttendanceRoster is the driver's in-memory boarding list
type AttendanceRoster struct {
	mu      sync.RWMutex
	entries []models.AttendanceEntry
}

// NewAttendanceRoster creates a roster holding a copy of entries
func NewAttendanceRoster(entries []models.AttendanceEntry) *AttendanceRoster {
	return &AttendanceRoster{entries: append([]models.AttendanceEntry(nil), entries...)}
}

// List returns a copy of the roster in boarding order
func (r *AttendanceRoster) List() []models.AttendanceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.AttendanceEntry(nil), r.entries...)
}

// Toggle marks a present student pending and anyone else present
func (r *AttendanceRoster) Toggle(studentID string) (models.AttendanceEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].StudentID != studentID {
			continue
		}
		if r.entries[i].Status == models.AttendancePresent {
			r.entries[i].Status = models.AttendancePending
		} else {
			r.entries[i].Status = models.AttendancePresent
		}
		return r.entries[i], nil
	}
	return models.AttendanceEntry{}, ErrUnknownStudent
}

// Reset replaces the roster with a copy of entries
func (r *AttendanceRoster) Reset(entries []models.AttendanceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]models.AttendanceEntry(nil), entries...)
}

// Counts tallies the roster by status
func (r *AttendanceRoster) Counts() AttendanceCounts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var c AttendanceCounts
	for _, e := range r.entries {
		switch e.Status {
		case models.AttendancePresent:
			c.Present++
		case models.AttendancePending:
			c.Pending++
		case models.AttendanceAbsent:
			c.Absent++
		}
	}
	return c
}
