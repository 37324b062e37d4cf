package checker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dshills/gramcheck/internal/analysis"
	"github.com/dshills/gramcheck/internal/config"
	"github.com/dshills/gramcheck/internal/config/notify"
	"github.com/dshills/gramcheck/internal/metadata"
	"github.com/dshills/gramcheck/internal/projector"
)

// FilterTimeout bounds one call of the filter script.
const FilterTimeout = 200 * time.Millisecond

// Session is the analysis context of one window: a single Dispatcher
// shared by the Checkers of every open document.
type Session struct {
	system     *config.System
	store      metadata.Store
	dispatcher *analysis.Dispatcher
	projector  *projector.Projector
	filter     *projector.LuaFilter
	logger     *slog.Logger
	interval   time.Duration
	runner     analysis.Runner
	sub        *notify.Subscription

	dispatchOpts []analysis.Option
	checkerOpts  []CheckerOption

	mu       sync.Mutex
	checkers map[string]*Checker
	closed   bool

	catalogMu      sync.Mutex
	catalog        *analysis.OptionCatalog
	catalogPattern string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger shared by the session's components.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDispatcherOptions passes options to the Dispatcher.
func WithDispatcherOptions(opts ...analysis.Option) SessionOption {
	return func(s *Session) { s.dispatchOpts = append(s.dispatchOpts, opts...) }
}

// WithCheckerOptions applies options to every Checker the session opens.
func WithCheckerOptions(opts ...CheckerOption) SessionOption {
	return func(s *Session) { s.checkerOpts = append(s.checkerOpts, opts...) }
}

// WithOptionRunner sets how the analyzer's option listing is run.
func WithOptionRunner(run analysis.Runner) SessionOption {
	return func(s *Session) { s.runner = run }
}

// NewSession creates a session from the global settings. The dispatcher
// tick interval is auto-analyze.timer; the filter script, when set, is
// loaded once for every document.
func NewSession(system *config.System, store metadata.Store, opts ...SessionOption) (*Session, error) {
	settings, err := system.Settings()
	if err != nil {
		return nil, err
	}
	s := &Session{
		system:   system,
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		interval: settings.AutoAnalyze.Timer,
		checkers: make(map[string]*Checker),
	}
	for _, opt := range opts {
		opt(s)
	}

	dopts := append([]analysis.Option{
		analysis.WithLogger(s.logger.With("component", "dispatcher")),
		analysis.WithTickInterval(s.interval),
	}, s.dispatchOpts...)
	if s.dispatcher, err = analysis.New(dopts...); err != nil {
		return nil, err
	}

	s.projector = projector.New(
		projector.WithLogger(s.logger.With("component", "projector")),
		projector.WithLanguage(projector.ParseLanguage(settings.Locale)),
	)
	if settings.FilterScript != "" {
		if s.filter, err = projector.NewLuaFilter(settings.FilterScript, FilterTimeout); err != nil {
			s.dispatcher.Abort()
			return nil, err
		}
	}

	s.sub = system.Notifier().Subscribe(func(notify.Change) {
		s.invalidateCatalog()
	}, notify.Under("analyzer"))
	return s, nil
}

// Dispatcher returns the session's dispatcher.
func (s *Session) Dispatcher() *analysis.Dispatcher {
	return s.dispatcher
}

// System returns the global configuration.
func (s *Session) System() *config.System {
	return s.system
}

// Open returns the checker for uri, creating it on first use. Opening an
// open document replaces its buffer.
func (s *Session) Open(uri string, buf Buffer, opts ...CheckerOption) (*Checker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if c, ok := s.checkers[uri]; ok {
		c.SetBuffer(buf)
		return c, nil
	}

	all := []CheckerOption{WithCheckerLogger(s.logger.With("component", "checker"))}
	if s.filter != nil {
		all = append(all, WithFilter(s.filter))
	}
	all = append(all, s.checkerOpts...)
	all = append(all, opts...)

	c, err := NewChecker(s.system.Document(uri, s.store), buf, s.dispatcher, s.projector, all...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	s.checkers[uri] = c
	return c, nil
}

// Release closes the checker for uri.
func (s *Session) Release(uri string) {
	s.mu.Lock()
	c, ok := s.checkers[uri]
	delete(s.checkers, uri)
	s.mu.Unlock()

	if ok {
		c.Close()
	}
}

// Checker returns the checker for uri.
func (s *Session) Checker(uri string) (*Checker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checkers[uri]
	return c, ok
}

// Checkers returns the open checkers ordered by URI.
func (s *Session) Checkers() []*Checker {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Checker, 0, len(s.checkers))
	for _, c := range s.checkers {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Checker) int { return strings.Compare(a.uri, b.uri) })
	return out
}

// Tick advances the dispatcher, then every checker's idle countdown.
func (s *Session) Tick() {
	s.dispatcher.Tick()
	s.tickCheckers()
}

func (s *Session) tickCheckers() {
	for _, c := range s.Checkers() {
		c.Tick()
	}
}

// Run ticks the session every auto-analyze.timer until ctx is cancelled
// and the dispatcher has drained.
func (s *Session) Run(ctx context.Context) {
	go s.dispatcher.Run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	tick := ticker.C
	for {
		select {
		case <-s.dispatcher.Done():
			return
		case <-ctx.Done():
			tick = nil
		case <-tick:
			s.tickCheckers()
		}
	}
}

// Close stops intake, lets a running analysis finish until ctx expires,
// and releases every checker and the filter script.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	checkers := s.checkers
	s.checkers = make(map[string]*Checker)
	s.mu.Unlock()

	s.sub.Unsubscribe()
	s.dispatcher.Shutdown()

	var err error
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-s.dispatcher.Done():
			break wait
		case <-ctx.Done():
			s.logger.Warn("analysis abandoned on close")
			s.dispatcher.Abort()
			err = ctx.Err()
			break wait
		case <-ticker.C:
			s.dispatcher.Tick()
		}
	}

	for _, c := range checkers {
		c.Close()
	}
	if s.filter != nil {
		if cerr := s.filter.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// ToolOptions lists the options the analyzer understands, running it
// with analyzer.list-options-args.
func (s *Session) ToolOptions(ctx context.Context) ([]analysis.ToolOption, error) {
	settings, err := s.system.Settings()
	if err != nil {
		return nil, err
	}

	s.catalogMu.Lock()
	if s.catalog == nil || s.catalogPattern != settings.Analyzer.OptionsRegex {
		cat, err := analysis.NewOptionCatalog(settings.Analyzer.OptionsRegex, s.runner)
		if err != nil {
			s.catalogMu.Unlock()
			return nil, err
		}
		s.catalog, s.catalogPattern = cat, settings.Analyzer.OptionsRegex
	}
	cat := s.catalog
	s.catalogMu.Unlock()

	return cat.List(ctx, settings.Snapshot(), settings.Analyzer.ListArgs)
}

func (s *Session) invalidateCatalog() {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	if s.catalog != nil {
		s.catalog.Invalidate()
	}
}
