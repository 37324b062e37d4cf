// Package notify delivers configuration change events to subscribers.
package notify

import (
	"slices"
	"strings"
	"sync"
)

// ChangeType is the kind of configuration change.
type ChangeType int

const (
	// ChangeSet means a value was set or a list gained an entry.
	ChangeSet ChangeType = iota

	// ChangeDelete means a value was removed or a list lost an entry.
	ChangeDelete

	// ChangeReload means a layer was replaced or cleared.
	ChangeReload
)

func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	}
	return "unknown"
}

// Change is one configuration change.
type Change struct {
	// Path is the dot-separated key. Empty when a whole layer was
	// cleared.
	Path string

	Type     ChangeType
	OldValue any
	NewValue any

	// Source is the name of the layer that changed.
	Source string

	// Scope is the document URI of a document-level change, empty for a
	// global one.
	Scope string
}

// Global reports whether the change applies to every document.
func (c Change) Global() bool {
	return c.Scope == ""
}

// Observer receives changes.
type Observer func(change Change)

// Filter selects the changes an observer receives.
type Filter func(change Change) bool

// InScope passes global changes and changes to the document uri.
func InScope(uri string) Filter {
	return func(c Change) bool {
		return c.Global() || c.Scope == uri
	}
}

// Under passes changes to path or a key below it, plus layer clears,
// which carry no path.
func Under(path string) Filter {
	return func(c Change) bool {
		return c.Path == "" || c.Path == path || strings.HasPrefix(c.Path, path+".")
	}
}

type subscriber struct {
	id       uint64
	observer Observer
	filters  []Filter
}

func (s subscriber) wants(c Change) bool {
	for _, f := range s.filters {
		if !f(c) {
			return false
		}
	}
	return true
}

// Subscription is an observer registration.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.remove(s.id)
	}
}

// Notifier fans changes out to observers. Observers run synchronously on
// the publishing goroutine, in subscription order, and may subscribe or
// unsubscribe from inside a callback.
type Notifier struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64
	closed bool
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers observer for the changes every filter passes.
func (n *Notifier) Subscribe(observer Observer, filters ...Filter) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.subs = append(n.subs, subscriber{id: n.nextID, observer: observer, filters: filters})
	return &Subscription{id: n.nextID, notifier: n}
}

func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = slices.DeleteFunc(n.subs, func(s subscriber) bool { return s.id == id })
}

// Notify publishes a change. It does nothing once the notifier is closed.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	var targets []Observer
	for _, s := range n.subs {
		if s.wants(change) {
			targets = append(targets, s.observer)
		}
	}
	n.mu.RUnlock()

	for _, obs := range targets {
		obs(change)
	}
}

// NotifySet publishes a set change.
func (n *Notifier) NotifySet(scope, path string, oldValue, newValue any, source string) {
	n.Notify(Change{Path: path, Type: ChangeSet, OldValue: oldValue, NewValue: newValue, Source: source, Scope: scope})
}

// NotifyDelete publishes a delete change.
func (n *Notifier) NotifyDelete(scope, path string, oldValue any, source string) {
	n.Notify(Change{Path: path, Type: ChangeDelete, OldValue: oldValue, Source: source, Scope: scope})
}

// NotifyReload publishes the clearing of the source layer.
func (n *Notifier) NotifyReload(scope, source string) {
	n.Notify(Change{Type: ChangeReload, Source: source, Scope: scope})
}

// Close drops every subscriber and stops delivery.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.subs = nil
}

// Batch collects changes and publishes them together, so observers see
// a reloaded file only once it is fully applied.
type Batch struct {
	notifier *Notifier
	mu       sync.Mutex
	changes  []Change
}

// NewBatch creates an empty batch.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add queues a change.
func (b *Batch) Add(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, change)
}

// Commit publishes the queued changes in order and empties the batch.
func (b *Batch) Commit() {
	b.mu.Lock()
	changes := b.changes
	b.changes = nil
	b.mu.Unlock()

	for _, c := range changes {
		b.notifier.Notify(c)
	}
}
