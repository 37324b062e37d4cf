package checker

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dshills/gramcheck/internal/analysis"
	"github.com/dshills/gramcheck/internal/config"
	"github.com/dshills/gramcheck/internal/config/layer"
	"github.com/dshills/gramcheck/internal/config/notify"
	"github.com/dshills/gramcheck/internal/finding"
	"github.com/dshills/gramcheck/internal/projector"
	"github.com/dshills/gramcheck/internal/report"
)

// Submitter accepts analysis requests. *analysis.Dispatcher implements it.
type Submitter interface {
	Submit(r analysis.Request) bool
}

// Update describes a new analysis result for a document.
type Update struct {
	URI        string
	Generation uint64
	Index      *finding.Index

	// Err is the analysis failure behind an empty index, if any.
	Err error

	// Pruned lists ignore entries removed because nothing matched them.
	Pruned []finding.Context
}

// Checker analyzes one document.
type Checker struct {
	uri        string
	doc        *config.Document
	submitter  Submitter
	projector  *projector.Projector
	filter     projector.Filter
	logger     *slog.Logger
	prune      bool
	opener     func(url string) error
	onUpdate   []func(Update)
	sub        *notify.Subscription
	generation atomic.Uint64
	index      atomic.Pointer[finding.Index]
	pruning    atomic.Bool

	mu        sync.Mutex
	buffer    Buffer
	bufferGen uint64
	sentGen   uint64
	countdown int
	requested bool
	settings  config.Settings
	failure   error
	closed    bool
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// OnUpdate registers a function called after every analysis result. It
// runs on the goroutine that ticks the dispatcher.
func OnUpdate(fn func(Update)) CheckerOption {
	return func(c *Checker) {
		if fn != nil {
			c.onUpdate = append(c.onUpdate, fn)
		}
	}
}

// WithPruning removes document ignore entries that matched no finding
// after each complete analysis.
func WithPruning(enabled bool) CheckerOption {
	return func(c *Checker) { c.prune = enabled }
}

// WithOpener sets how the see-rule quick fix opens a URL.
func WithOpener(open func(url string) error) CheckerOption {
	return func(c *Checker) { c.opener = open }
}

// WithFilter sets the record filter applied during projection.
func WithFilter(f projector.Filter) CheckerOption {
	return func(c *Checker) { c.filter = f }
}

// WithCheckerLogger sets the logger.
func WithCheckerLogger(l *slog.Logger) CheckerOption {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChecker creates a checker for doc reading from buf. It subscribes to
// configuration changes and starts the idle countdown.
func NewChecker(doc *config.Document, buf Buffer, submitter Submitter, proj *projector.Projector, opts ...CheckerOption) (*Checker, error) {
	settings, err := doc.Settings()
	if err != nil {
		return nil, err
	}
	c := &Checker{
		uri:       doc.URI(),
		doc:       doc,
		submitter: submitter,
		projector: proj,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		buffer:    buf,
		countdown: -1,
		settings:  settings,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.projector == nil {
		c.projector = projector.New(projector.WithLogger(c.logger))
	}
	c.logger = c.logger.With("uri", c.uri)
	c.index.Store(finding.NewIndex())
	c.sub = doc.System().Notifier().Subscribe(c.onConfigChange, notify.InScope(c.uri))
	c.Touch()
	return c, nil
}

// URI returns the document URI.
func (c *Checker) URI() string {
	return c.uri
}

// Document returns the document configuration.
func (c *Checker) Document() *config.Document {
	return c.doc
}

// Settings returns the settings last read for the document.
func (c *Checker) Settings() config.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Index returns the current finding index. It is never nil and never
// modified after it is returned.
func (c *Checker) Index() *finding.Index {
	return c.index.Load()
}

// Generation counts the results delivered so far.
func (c *Checker) Generation() uint64 {
	return c.generation.Load()
}

// Requested reports whether the checker is waiting for its analysis to
// start.
func (c *Checker) Requested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requested
}

// LastFailure returns the cause of the last failed analysis, or nil when
// the last one succeeded.
func (c *Checker) LastFailure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// At returns the finding covering p.
func (c *Checker) At(p finding.Point) (*finding.Record, bool) {
	return c.Index().At(p)
}

// Touch restarts the idle countdown. It is ignored while a request is
// queued.
func (c *Checker) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.requested && !c.closed {
		c.countdown = c.settings.AutoAnalyze.WaitTicks
	}
}

// SetBuffer replaces the buffer. A result computed from the previous
// buffer is discarded.
func (c *Checker) SetBuffer(buf Buffer) {
	c.mu.Lock()
	c.buffer = buf
	c.bufferGen++
	c.mu.Unlock()
	c.Touch()
}

// Tick advances the idle countdown and submits the checker when it runs
// out. Nothing happens while automatic analysis is off.
func (c *Checker) Tick() {
	c.mu.Lock()
	if c.closed || !c.settings.AutoAnalyze.Active {
		c.mu.Unlock()
		return
	}
	if c.countdown >= 0 {
		c.countdown--
	}
	submit := c.countdown == 0
	if submit {
		c.requested = true
	}
	c.mu.Unlock()

	if submit {
		c.submit()
	}
}

// Analyze submits the checker now, unless a request is already queued.
func (c *Checker) Analyze() bool {
	c.mu.Lock()
	if c.closed || c.requested {
		c.mu.Unlock()
		return false
	}
	c.requested = true
	c.countdown = -1
	c.mu.Unlock()

	return c.submit()
}

func (c *Checker) submit() bool {
	if c.submitter.Submit(c) {
		c.logger.Debug("analysis requested")
		return true
	}
	c.mu.Lock()
	c.requested = false
	c.mu.Unlock()
	return false
}

// Close stops following configuration changes. A queued request still
// completes but is no longer published.
func (c *Checker) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.countdown = -1
	c.mu.Unlock()
	c.sub.Unsubscribe()
}

// Config implements analysis.Request.
func (c *Checker) Config() analysis.Snapshot {
	settings, err := c.doc.Settings()
	if err != nil {
		c.logger.Warn("document configuration unusable", "error", err)
		return analysis.Snapshot{}
	}
	c.mu.Lock()
	c.settings = settings
	c.mu.Unlock()
	return settings.Snapshot()
}

// Text implements analysis.Request.
func (c *Checker) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sentGen = c.bufferGen
	c.failure = nil
	if c.buffer == nil {
		return ""
	}
	return c.buffer.Text()
}

// OnStart implements analysis.Starter.
func (c *Checker) OnStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested = false
}

// OnFailure implements analysis.FailureObserver.
func (c *Checker) OnFailure(err error) {
	c.mu.Lock()
	c.failure = err
	c.mu.Unlock()
	c.logger.Warn("analysis failed", "error", err)
}

// OnResult implements analysis.Request.
func (c *Checker) OnResult(rep report.Report) {
	c.mu.Lock()
	// OnStart is skipped when the analyzer could not be started.
	c.requested = false
	closed := c.closed
	stale := c.sentGen != c.bufferGen
	failure := c.failure
	settings := c.settings
	c.mu.Unlock()

	if closed {
		return
	}
	if stale {
		c.logger.Debug("result for a replaced buffer discarded")
		return
	}

	res := c.projector.Project(rep, projector.Policy{
		Spelling:      settings.Spelling(),
		IgnoredErrors: settings.IgnoredErrors,
		IgnoredRules:  settings.IgnoredRules,
		Filter:        c.filter,
	})
	c.index.Store(res.Index)
	gen := c.generation.Add(1)

	// A failed cycle delivers an empty report that matches nothing.
	var pruned []finding.Context
	if c.prune && failure == nil {
		pruned = c.pruneIgnores(res.UnusedIgnores())
	}

	c.logger.Info("analysis complete", "generation", gen, "findings", res.Index.Len(), "suppressed", res.Suppressed, "skipped", res.Skipped)
	up := Update{URI: c.uri, Generation: gen, Index: res.Index, Err: failure, Pruned: pruned}
	for _, fn := range c.onUpdate {
		fn(up)
	}
}

// pruneIgnores removes unused ignore entries from the document level.
// Entries inherited from the user or system levels are kept.
func (c *Checker) pruneIgnores(unused []finding.Context) []finding.Context {
	if len(unused) == 0 {
		return nil
	}
	local := c.doc.LocalValues(config.KeyIgnoredErrors)
	isLocal := func(v any) bool {
		return slices.ContainsFunc(local, func(x any) bool { return layer.ValuesEqual(x, v) })
	}

	c.pruning.Store(true)
	defer c.pruning.Store(false)

	var pruned []finding.Context
	for _, ctx := range unused {
		v := config.ContextValue(ctx)
		if !isLocal(v) {
			continue
		}
		if err := c.doc.RemoveValue(config.KeyIgnoredErrors, v, config.LevelDocument); err != nil {
			c.logger.Warn("ignore entry not pruned", "flagged", ctx.Flagged, "error", err)
			continue
		}
		c.logger.Info("pruned ignore entry", "before", ctx.Before, "flagged", ctx.Flagged, "after", ctx.After)
		pruned = append(pruned, ctx)
	}
	return pruned
}

func (c *Checker) onConfigChange(ch notify.Change) {
	if c.pruning.Load() {
		return
	}

	settings, err := c.doc.Settings()
	if err != nil {
		c.logger.Warn("configuration change ignored", "path", ch.Path, "error", err)
		return
	}
	c.mu.Lock()
	c.settings = settings
	c.mu.Unlock()

	if config.TriggersAnalysis(ch.Path) {
		c.Touch()
	}
}
