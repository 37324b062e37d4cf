package analysis

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/gramcheck/internal/integration/process"
)

// Handle is a launched analyzer.
type Handle interface {
	// Done is closed when the analyzer exits.
	Done() <-chan struct{}

	// ExitCode is valid once Done is closed.
	ExitCode() int
}

// Launcher starts analyzer processes.
type Launcher interface {
	Launch(argv []string, stdout, stderr *os.File) (Handle, error)

	// Close stops every process still running.
	Close()
}

// SupervisorLauncher starts analyzers under a process.Supervisor.
type SupervisorLauncher struct {
	sup     *process.Supervisor
	timeout time.Duration
}

// NewSupervisorLauncher creates a launcher that allows one analyzer at a
// time. Close waits up to timeout for a running analyzer before killing
// it.
func NewSupervisorLauncher(timeout time.Duration, opts ...process.Option) *SupervisorLauncher {
	opts = append([]process.Option{process.WithMaxProcesses(1)}, opts...)
	return &SupervisorLauncher{
		sup:     process.NewSupervisor(opts...),
		timeout: timeout,
	}
}

// Launch starts argv with its output sent to the given files.
func (l *SupervisorLauncher) Launch(argv []string, stdout, stderr *os.File) (Handle, error) {
	proc, err := l.sup.Start(process.Spec{
		Name:   filepath.Base(argv[0]),
		Argv:   argv,
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return nil, err
	}
	return proc, nil
}

// Peak returns the highest number of analyzers that ran at once.
func (l *SupervisorLauncher) Peak() int {
	return l.sup.Peak()
}

// Close shuts the supervisor down.
func (l *SupervisorLauncher) Close() {
	l.sup.Shutdown(l.timeout)
}
