package session

import "errors"

var (
	// ErrNotFound is returned when an attempt id exists in neither storage tier
	ErrNotFound = errors.New("session not found")

	// ErrVersionConflict is returned when a concurrent writer won the race on
	// the same attempt. Callers must re-read before retrying.
	ErrVersionConflict = errors.New("session version conflict")

	// ErrDuplicateID is returned when an insert collides with an existing id
	ErrDuplicateID = errors.New("session id already exists")
)
