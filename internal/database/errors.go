package database

import "errors"

var (
	// ErrStudentNotFound is returned when no student matches a lookup
	ErrStudentNotFound = errors.New("student not found")
	// ErrAmbiguousStudent is returned when a login lookup matches more than one row
	ErrAmbiguousStudent = errors.New("more than one student matches")
	// ErrBusNotFound is returned when the bus row does not exist
	ErrBusNotFound = errors.New("bus not found")
)
