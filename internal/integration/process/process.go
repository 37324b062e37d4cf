package process

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// State is the lifecycle stage of a Process.
type State int32

const (
	StateCreated State = iota
	StateRunning
	// StateExited means the analyzer ended by itself, whatever its code.
	StateExited
	// StateKilled means a signal ended it.
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	}
	return fmt.Sprintf("unknown(%d)", int32(s))
}

// Process is one analyzer run. Its exit is observed without blocking
// through Exited or the Done channel.
type Process struct {
	ID      string
	Name    string
	Argv    []string
	Started time.Time

	cmd      *exec.Cmd
	done     chan struct{}
	state    atomic.Int32
	exitCode atomic.Int32

	mu    sync.Mutex
	err   error
	ended time.Time

	// exited runs after the command is reaped, before done closes.
	exited func(*Process)
}

func newProcess(id string, spec Spec) *Process {
	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	p := &Process{
		ID:   id,
		Name: spec.Name,
		Argv: spec.Argv,
		cmd:  cmd,
		done: make(chan struct{}),
	}
	p.exitCode.Store(-1)
	return p
}

// State returns the lifecycle stage.
func (p *Process) State() State {
	return State(p.state.Load())
}

// ExitCode is the analyzer's exit status once Done is closed; -1 before
// that or when it was killed.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

// Err is the wait error, nil after a zero exit.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done is closed when the analyzer has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited polls Done.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Elapsed is the run time so far, or the total once exited.
func (p *Process) Elapsed() time.Duration {
	if p.State() == StateCreated {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended.IsZero() {
		return time.Since(p.Started)
	}
	return p.ended.Sub(p.Started)
}

// Kill ends the analyzer with SIGKILL.
func (p *Process) Kill() error {
	return p.signal(syscall.SIGKILL)
}

func (p *Process) signal(sig syscall.Signal) error {
	if p.State() != StateRunning {
		return ErrNotRunning
	}
	return p.cmd.Process.Signal(sig)
}

func (p *Process) start() error {
	if p.State() != StateCreated {
		return ErrAlreadyStarted
	}
	p.Started = time.Now()
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.Name, err)
	}
	p.state.Store(int32(StateRunning))
	go p.reap()
	return nil
}

func (p *Process) reap() {
	err := p.cmd.Wait()

	code, state := 0, StateExited
	var ee *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &ee):
		code = ee.ExitCode()
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			code, state = -1, StateKilled
		}
	default:
		code = -1
	}

	p.mu.Lock()
	p.err = err
	p.ended = time.Now()
	p.mu.Unlock()
	p.exitCode.Store(int32(code))
	p.state.Store(int32(state))

	if p.exited != nil {
		p.exited(p)
	}
	close(p.done)
}
