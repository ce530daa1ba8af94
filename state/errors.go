package state

import "errors"

var (
	// ErrDuplicateId indicates a router with the same id is already registered.
	ErrDuplicateId = errors.New("router already exists")
	// ErrNotFound indicates an unknown router id or a link that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidWeight indicates a negative, NaN or infinite link weight.
	ErrInvalidWeight = errors.New("invalid link weight")
	// ErrInvalidId indicates an id that cannot be registered.
	ErrInvalidId = errors.New("invalid router id")
	// ErrInvalidLink indicates a link from a router to itself.
	ErrInvalidLink = errors.New("invalid link")
	// ErrNotConverged indicates propagation did not settle within the allowed rounds.
	ErrNotConverged = errors.New("network did not converge")
)
