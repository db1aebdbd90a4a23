package scheduler

import "errors"

var (
	// ErrRunInProgress is returned when a manual trigger overlaps a run
	ErrRunInProgress = errors.New("scheduled run already in progress")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
