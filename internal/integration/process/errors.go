package process

import "errors"

var (
	// ErrNotRunning is returned when signalling a process that is not
	// running.
	ErrNotRunning = errors.New("process not running")

	// ErrAlreadyStarted is returned when a process is started twice.
	ErrAlreadyStarted = errors.New("process already started")

	// ErrShutdown is returned by Start once Shutdown has begun.
	ErrShutdown = errors.New("supervisor is shutting down")

	// ErrLimit is returned by Start when the process limit is reached.
	ErrLimit = errors.New("process limit reached")

	// ErrEmptyCommand is returned for a Spec without argv.
	ErrEmptyCommand = errors.New("empty command")
)
