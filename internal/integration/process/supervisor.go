package process

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Spec describes a command to start. Stdout and Stderr are handed to the
// child as they are; pass *os.File values to avoid copy goroutines.
type Spec struct {
	Name   string
	Argv   []string
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Supervisor starts analyzer processes and tracks them until they exit.
type Supervisor struct {
	logger *slog.Logger
	limit  int

	mu        sync.Mutex
	processes map[string]*Process
	peak      int
	closed    bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithMaxProcesses caps the processes running at once. Zero means no cap.
func WithMaxProcesses(n int) Option {
	return func(s *Supervisor) { s.limit = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		processes: make(map[string]*Process),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs spec under a fresh uuid.
func (s *Supervisor) Start(spec Spec) (*Process, error) {
	if len(spec.Argv) == 0 {
		return nil, ErrEmptyCommand
	}
	if spec.Name == "" {
		spec.Name = spec.Argv[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrShutdown
	}
	if s.limit > 0 && len(s.processes) >= s.limit {
		return nil, fmt.Errorf("%w: %d", ErrLimit, s.limit)
	}

	p := newProcess(uuid.NewString(), spec)
	p.exited = s.untrack
	if err := p.start(); err != nil {
		return nil, err
	}
	s.processes[p.ID] = p
	s.peak = max(s.peak, len(s.processes))
	s.logger.Debug("process started", "id", p.ID, "name", p.Name, "pid", p.cmd.Process.Pid)
	return p, nil
}

// untrack frees the slot of p before its Done channel closes, so the
// next analyzer can start as soon as Done is observed.
func (s *Supervisor) untrack(p *Process) {
	s.mu.Lock()
	delete(s.processes, p.ID)
	s.mu.Unlock()
	s.logger.Debug("process exited", "id", p.ID, "name", p.Name, "state", p.State(), "code", p.ExitCode())
}

// Count returns the number of running processes.
func (s *Supervisor) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processes)
}

// Peak returns the most processes that ran at once.
func (s *Supervisor) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Shutdown refuses new processes, sends SIGTERM to running ones and
// SIGKILL to whatever is left after grace. It returns once all have
// exited. Later calls return at once.
func (s *Supervisor) Shutdown(grace time.Duration) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	running := make([]*Process, 0, len(s.processes))
	for _, p := range s.processes {
		running = append(running, p)
	}
	s.mu.Unlock()

	for _, p := range running {
		_ = p.signal(syscall.SIGTERM)
	}
	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	for _, p := range running {
		select {
		case <-p.Done():
		case <-deadline.C:
			s.logger.Warn("process ignored SIGTERM", "id", p.ID, "name", p.Name)
			for _, q := range running {
				_ = q.Kill()
			}
			for _, q := range running {
				<-q.Done()
			}
			return
		}
	}
}
