package models

import (
	"fmt"
	"strings"
)

// Role identifies which dashboard a session belongs to
type Role string

const (
	RoleStudent    Role = "student"
	RoleDriver     Role = "driver"
	RoleManagement Role = "management"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleDriver, RoleManagement:
		return true
	}
	return false
}

// ParseRole converts user input into a Role
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Profile is the identity kept in the session for the lifetime of a login.
// Fee fields are only meaningful for students.
type Profile struct {
	Name          string  `json:"name"`
	Roll          string  `json:"roll,omitempty"`
	Seat          string  `json:"seat,omitempty"`
	TotalFee      float64 `json:"total_fee"`
	PaidAmount    float64 `json:"paid_amount"`
	PendingAmount float64 `json:"pending_amount"`
	Role          Role    `json:"role"`
}
