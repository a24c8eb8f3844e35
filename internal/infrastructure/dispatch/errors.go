package dispatch

import "errors"

var (
	// ErrDispatcherNotRunning is returned when interacting with a stopped dispatcher
	ErrDispatcherNotRunning = errors.New("dispatcher is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid dispatcher configuration")
)
