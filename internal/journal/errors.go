package journal

import "errors"

var (
	// ErrRunNotFound indicates no run exists with the given ID.
	ErrRunNotFound = errors.New("journal: run not found")

	// ErrRefinedNotFound indicates no refined data exists for the day or hour.
	ErrRefinedNotFound = errors.New("journal: refined data not found")
)
