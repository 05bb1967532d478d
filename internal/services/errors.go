package services

import "errors"

var (
	// ErrInvalidCredentials covers every failed login, whichever field was wrong
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTripAlreadyActive is returned when starting a trip that is running
	ErrTripAlreadyActive = errors.New("trip already active")
	// ErrNoActiveTrip is returned when stopping a trip that is not running
	ErrNoActiveTrip = errors.New("no active trip")
	// ErrInvalidToken is returned for a refresh token that fails validation
	ErrInvalidToken = errors.New("invalid token")
	// ErrLocationUnavailable is returned when the location watch cannot start
	ErrLocationUnavailable = errors.New("location unavailable")
)
