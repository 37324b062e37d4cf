// Package watcher reports changes to individual files using fsnotify.
//
// The parent directory of each watched file is watched, so files that are
// replaced by rename or created after Watch are still seen. Bursts of
// events for one file are coalesced before handlers run.
package watcher

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned by a closed watcher.
var ErrClosed = errors.New("watcher closed")

// Event is a change to a watched file.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	Op Operation

	Time time.Time
}

// Operation is the kind of file change.
type Operation int

const (
	// OpWrite means the file was modified.
	OpWrite Operation = iota
	// OpCreate means the file appeared.
	OpCreate
	// OpRemove means the file was deleted.
	OpRemove
	// OpRename means the file was moved away.
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler is called for each coalesced event.
type Handler func(event Event)

// Watcher watches a set of files.
type Watcher struct {
	mu       sync.RWMutex
	fsw      *fsnotify.Watcher
	files    map[string]bool
	dirs     map[string]int
	handlers []Handler
	closed   bool

	debounce time.Duration
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]Event

	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must stay quiet before its event is
// delivered. Zero delivers every event at once.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher and starts its event loop.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]bool),
		dirs:     make(map[string]int),
		debounce: 100 * time.Millisecond,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending:  make(map[string]Event),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.eventLoop()
	if w.debounce > 0 {
		w.wg.Add(1)
		go w.debounceLoop()
	}
	return w, nil
}

// Watch adds a file. The file need not exist yet but its directory must.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.files[abs] {
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = true
	return nil
}

// Unwatch removes a file.
func (w *Watcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.files[abs] {
		return nil
	}
	delete(w.files, abs)
	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		if !w.closed {
			return w.fsw.Remove(dir)
		}
	}
	return nil
}

// OnChange registers a handler.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// WatchedFiles returns the watched paths, sorted.
func (w *Watcher) WatchedFiles() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	files := make([]string, 0, len(w.files))
	for path := range w.files {
		files = append(files, path)
	}
	slices.Sort(files)
	return files
}

// Close stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	w.mu.RLock()
	watched := w.files[path]
	w.mu.RUnlock()
	if !watched {
		return
	}

	op, ok := convertOp(ev.Op)
	if !ok {
		return
	}
	event := Event{Path: path, Op: op, Time: time.Now()}
	if w.debounce > 0 {
		w.queue(event)
		return
	}
	w.emit(event)
}

func convertOp(op fsnotify.Op) (Operation, bool) {
	switch {
	case op.Has(fsnotify.Remove):
		return OpRemove, true
	case op.Has(fsnotify.Rename):
		return OpRename, true
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpWrite, true
	default:
		return 0, false
	}
}

// queue coalesces an event with any pending one for the same file. A
// removal wins over everything, a creation wins over writes.
func (w *Watcher) queue(event Event) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if existing, ok := w.pending[event.Path]; ok {
		switch {
		case event.Op == OpRemove || event.Op == OpRename:
		case existing.Op == OpCreate && event.Op == OpWrite:
			event.Op = OpCreate
		case existing.Op == OpRemove || existing.Op == OpRename:
			if event.Op == OpWrite {
				event.Op = existing.Op
			}
		}
	}
	w.pending[event.Path] = event
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.flush(time.Now().Add(-w.debounce))
		}
	}
}

// flush emits pending events that have been quiet since before stable.
func (w *Watcher) flush(stable time.Time) {
	w.pendingMu.Lock()
	var ready []Event
	for path, ev := range w.pending {
		if ev.Time.Before(stable) {
			ready = append(ready, ev)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	slices.SortFunc(ready, func(a, b Event) int { return a.Time.Compare(b.Time) })
	for _, ev := range ready {
		w.emit(ev)
	}
}

func (w *Watcher) emit(event Event) {
	w.mu.RLock()
	handlers := slices.Clone(w.handlers)
	w.mu.RUnlock()

	for _, h := range handlers {
		w.call(h, event)
	}
}

func (w *Watcher) call(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("watch handler panicked", "path", event.Path, "panic", r)
		}
	}()
	h(event)
}
