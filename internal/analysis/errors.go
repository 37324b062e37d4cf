package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSnapshot is returned when a request's configuration cannot
// form an analyzer command line.
var ErrInvalidSnapshot = errors.New("invalid analyzer configuration")

// StartError reports an analyzer that could not be started.
type StartError struct {
	Argv []string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start analyzer %q: %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// ExitError reports an analyzer that exited with a nonzero code.
type ExitError struct {
	Code int

	// Stderr is the analyzer's standard error output.
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("analyzer exited with code %d", e.Code)
	}
	return fmt.Sprintf("analyzer exited with code %d: %s", e.Code, e.Stderr)
}
