package models

// FeeStatus summarises how much of the annual transport fee is settled
type FeeStatus string

const (
	FeeStatusPaid          FeeStatus = "Paid"
	FeeStatusPartiallyPaid FeeStatus = "Partially Paid"
	FeeStatusPending       FeeStatus = "Pending"
)

// StudentRecord is a row of the students table
type StudentRecord struct {
	Name          string  `json:"name" db:"name"`
	StudentID     string  `json:"student_id" db:"student_id"`
	AssignedSeat  *string `json:"assigned_seat,omitempty" db:"assigned_seat"`
	TotalFee      float64 `json:"total_fee" db:"total_fee"`
	PaidAmount    float64 `json:"paid_amount" db:"paid_amount"`
	PendingAmount float64 `json:"pending_amount" db:"pending_amount"`
}

// Seat returns the assigned seat or an empty string
func (s *StudentRecord) Seat() string {
	if s.AssignedSeat == nil {
		return ""
	}
	return *s.AssignedSeat
}

// Profile converts the record into a student session profile
func (s *StudentRecord) Profile() Profile {
	return Profile{
		Name:          s.Name,
		Roll:          s.StudentID,
		Seat:          s.Seat(),
		TotalFee:      s.TotalFee,
		PaidAmount:    s.PaidAmount,
		PendingAmount: s.PendingAmount,
		Role:          RoleStudent,
	}
}

// StudentFeeStatus is the label shown on the student dashboard
func StudentFeeStatus(pending float64) FeeStatus {
	if pending == 0 {
		return FeeStatusPaid
	}
	return FeeStatusPartiallyPaid
}

// ManagementFeeStatus is the label shown in the management student list
func ManagementFeeStatus(pending float64) FeeStatus {
	if pending == 0 {
		return FeeStatusPaid
	}
	return FeeStatusPending
}

// StudentSummary is one row of the management student list
type StudentSummary struct {
	StudentRecord
	FeeStatus FeeStatus `json:"fee_status"`
}
