package analysis

import (
	"log/slog"
	"time"
)

// Defaults for a Dispatcher.
const (
	DefaultTickInterval = 250 * time.Millisecond
	DefaultDrainTimeout = 10 * time.Second
	DefaultKillTimeout  = 2 * time.Second
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) Option {
	return func(d *Dispatcher) {
		d.launcher = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTickInterval sets the period Run ticks at.
func WithTickInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithDrainTimeout bounds how long Run waits for a running analyzer
// after its context is cancelled.
func WithDrainTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.drain = timeout
		}
	}
}

// WithTempDir sets the parent directory of the scratch files.
func WithTempDir(dir string) Option {
	return func(d *Dispatcher) {
		d.tempDir = dir
	}
}
