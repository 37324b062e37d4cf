package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/dshills/gramcheck/internal/integration/process"
	"github.com/dshills/gramcheck/internal/report"
	"github.com/google/uuid"
)

// State is the dispatcher state.
type State int

const (
	// StateIdle means no analyzer is running.
	StateIdle State = iota
	// StateRunning means one analyzer is running.
	StateRunning
	// StateTerminated means the dispatcher has shut down for good.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// cycle is one request being analyzed.
type cycle struct {
	id      string
	req     Request
	handle  Handle
	started time.Time
}

// Dispatcher runs queued requests through the analyzer one at a time.
//
// Submit, Shutdown and the accessors are safe for concurrent use. Tick
// calls are serialized; request callbacks run inside Tick and must not
// call Tick themselves.
type Dispatcher struct {
	mu      sync.Mutex
	queue   []Request
	state   State
	closed  bool
	ticking bool
	current *cycle

	tickMu sync.Mutex

	launcher Launcher
	scratch  *scratch
	logger   *slog.Logger
	metrics  *Metrics
	interval time.Duration
	drain    time.Duration
	tempDir  string

	done        chan struct{}
	releaseOnce sync.Once
}

// New creates an idle dispatcher and its scratch files.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		interval: DefaultTickInterval,
		drain:    DefaultDrainTimeout,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	sc, err := newScratch(d.tempDir)
	if err != nil {
		return nil, err
	}
	d.scratch = sc
	if d.launcher == nil {
		d.launcher = NewSupervisorLauncher(DefaultKillTimeout, process.WithLogger(d.logger))
	}
	return d, nil
}

// Submit queues a request. It reports false, and drops the request, once
// the dispatcher is shut down.
func (d *Dispatcher) Submit(r Request) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("request dropped after shutdown")
		d.metrics.drop(1)
		return false
	}
	d.queue = append(d.queue, r)
	depth := len(d.queue)
	d.mu.Unlock()

	d.metrics.queueDepth(depth)
	return true
}

// Tick advances the state machine by one step without blocking on the
// analyzer. A panic during the step terminates the dispatcher.
func (d *Dispatcher) Tick() {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	d.mu.Lock()
	st := d.state
	if st == StateTerminated {
		d.mu.Unlock()
		return
	}
	d.ticking = true
	d.mu.Unlock()

	next := st
	func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("dispatcher fault", "panic", r, "stack", string(debug.Stack()))
				d.metrics.fault()
				next = d.abandon()
			}
		}()
		switch st {
		case StateIdle:
			next = d.startNext()
		case StateRunning:
			next = d.poll()
		}
	}()

	d.mu.Lock()
	d.ticking = false
	if d.closed && next == StateIdle {
		next = StateTerminated
	}
	d.state = next
	d.mu.Unlock()

	if next == StateTerminated {
		d.release()
	}
}

// startNext launches the analyzer for the oldest queued request.
func (d *Dispatcher) startNext() State {
	d.mu.Lock()
	if d.closed || len(d.queue) == 0 {
		d.mu.Unlock()
		return StateIdle
	}
	req := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	depth := len(d.queue)
	d.mu.Unlock()
	d.metrics.queueDepth(depth)

	c := &cycle{id: uuid.NewString(), req: req}
	snap := req.Config()
	if err := snap.Validate(); err != nil {
		d.fail(c, OutcomeStartFailure, err)
		return StateIdle
	}

	stdout, stderr, err := d.scratch.prepare(req.Text())
	if err != nil {
		d.fail(c, OutcomeStartFailure, err)
		return StateIdle
	}

	argv := snap.Command(d.scratch.input)
	h, err := d.launcher.Launch(argv, stdout, stderr)
	if err != nil {
		d.scratch.closeHandles()
		d.fail(c, OutcomeStartFailure, &StartError{Argv: argv, Err: err})
		return StateIdle
	}

	c.handle = h
	c.started = time.Now()
	d.mu.Lock()
	d.current = c
	d.mu.Unlock()

	d.logger.Debug("analysis started", "cycle", c.id, "argv", argv)
	if s, ok := req.(Starter); ok {
		s.OnStart()
	}
	return StateRunning
}

// poll checks the running analyzer and delivers its result once it has
// exited.
func (d *Dispatcher) poll() State {
	d.mu.Lock()
	c := d.current
	d.mu.Unlock()

	select {
	case <-c.handle.Done():
	default:
		return StateRunning
	}

	d.mu.Lock()
	d.current = nil
	d.mu.Unlock()

	elapsed := time.Since(c.started)
	d.metrics.observe(elapsed)

	stdout, stderr, err := d.scratch.collect()
	if err != nil {
		d.fail(c, OutcomeMalformed, err)
		return StateIdle
	}

	if code := c.handle.ExitCode(); code != 0 {
		d.fail(c, OutcomeExitFailure, &ExitError{Code: code, Stderr: strings.TrimSpace(string(stderr))})
		return StateIdle
	}

	rep, err := report.Parse(stdout)
	if err != nil {
		d.fail(c, OutcomeMalformed, fmt.Errorf("decode analyzer output: %w", err))
		return StateIdle
	}

	d.logger.Debug("analysis finished", "cycle", c.id, "findings", rep.Count(), "elapsed", elapsed)
	d.metrics.cycle(OutcomeSuccess)
	c.req.OnResult(rep)
	return StateIdle
}

// fail reports err and delivers an empty report.
func (d *Dispatcher) fail(c *cycle, outcome string, err error) {
	d.logger.Warn("analysis failed", "cycle", c.id, "outcome", outcome, "error", err)
	d.metrics.cycle(outcome)
	if o, ok := c.req.(FailureObserver); ok {
		o.OnFailure(err)
	}
	c.req.OnResult(report.Report{})
}

// abandon closes intake and forgets the queue and the running request
// after a fault.
func (d *Dispatcher) abandon() State {
	d.mu.Lock()
	d.closed = true
	dropped := len(d.queue)
	d.queue = nil
	c := d.current
	d.current = nil
	d.mu.Unlock()

	d.metrics.drop(dropped)
	d.metrics.queueDepth(0)
	if c != nil {
		d.logger.Warn("running analysis abandoned", "cycle", c.id)
	}
	return StateTerminated
}

// Shutdown stops intake and drops queued requests. A running analysis is
// still delivered by a later Tick, after which the dispatcher terminates.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	dropped := len(d.queue)
	d.queue = nil
	idle := d.state == StateIdle && !d.ticking
	if idle {
		d.state = StateTerminated
	}
	d.mu.Unlock()

	d.metrics.drop(dropped)
	d.metrics.queueDepth(0)
	d.logger.Info("dispatcher shutting down", "dropped", dropped)
	if idle {
		d.release()
	}
}

// release frees the launcher and scratch files once.
func (d *Dispatcher) release() {
	d.releaseOnce.Do(func() {
		d.launcher.Close()
		if err := d.scratch.release(); err != nil {
			d.logger.Warn("scratch cleanup failed", "error", err)
		}
		close(d.done)
		d.logger.Debug("dispatcher terminated")
	})
}

// Run ticks every interval until the dispatcher terminates. When ctx is
// cancelled Run shuts the dispatcher down and keeps ticking so a running
// analysis can finish; after the drain timeout it is abandoned.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	cancelled := ctx.Done()
	var drain <-chan time.Time
	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.Tick()
		case <-cancelled:
			cancelled = nil
			d.Shutdown()
			drain = time.After(d.drain)
		case <-drain:
			d.logger.Warn("drain timeout reached")
			d.Abort()
			return
		}
	}
}

// Abort terminates the dispatcher at once, dropping queued requests and
// abandoning a running analysis without delivering it.
func (d *Dispatcher) Abort() {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	d.abandon()
	d.mu.Lock()
	d.state = StateTerminated
	d.mu.Unlock()
	d.release()
}

// State returns the current state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Pending returns the number of queued requests, excluding one running.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Done is closed when the dispatcher has terminated and released its
// resources.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}
