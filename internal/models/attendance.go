package models

// AttendanceStatus is the boarding state of a student for today's trip
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendancePending AttendanceStatus = "pending"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// AttendanceEntry is one student on the driver's boarding list
type AttendanceEntry struct {
	StudentID string           `json:"id"`
	Name      string           `json:"name"`
	StopName  string           `json:"stop"`
	Status    AttendanceStatus `json:"status"`
}
