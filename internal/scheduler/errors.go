package scheduler

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when the scheduler is running.
	ErrAlreadyRunning = errors.New("scheduler: already running")
)
