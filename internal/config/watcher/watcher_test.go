package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) wait(t *testing.T, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.events) >= n {
			out := append([]Event(nil), c.events...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events", n)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_WriteEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("locale = \"en\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(WithDebounce(0))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	var c collector
	w.OnChange(c.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("locale = \"fr\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := c.wait(t, 1)
	for _, e := range events {
		if e.Path != path {
			t.Errorf("event for unwatched file %s", e.Path)
		}
	}
}

func TestWatcher_CreateAfterWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.toml")

	w, err := New(WithDebounce(0))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	var c collector
	w.OnChange(c.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := c.wait(t, 1)
	if events[0].Op != OpCreate {
		t.Errorf("first op = %s, want create", events[0].Op)
	}
}

func TestWatcher_DebounceCoalesces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(WithDebounce(100 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	var c collector
	w.OnChange(c.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	for i := range 5 {
		if err := os.WriteFile(path, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	c.wait(t, 1)
	time.Sleep(250 * time.Millisecond)
	if n := c.count(); n != 1 {
		t.Errorf("got %d events, want 1 coalesced", n)
	}
}

func TestWatcher_QueueCoalescing(t *testing.T) {
	w := &Watcher{pending: make(map[string]Event)}
	now := time.Now()

	w.queue(Event{Path: "/a", Op: OpCreate, Time: now})
	w.queue(Event{Path: "/a", Op: OpWrite, Time: now})
	if op := w.pending["/a"].Op; op != OpCreate {
		t.Errorf("create+write = %s, want create", op)
	}
	w.queue(Event{Path: "/a", Op: OpRemove, Time: now})
	if op := w.pending["/a"].Op; op != OpRemove {
		t.Errorf("+remove = %s, want remove", op)
	}
	w.queue(Event{Path: "/a", Op: OpWrite, Time: now})
	if op := w.pending["/a"].Op; op != OpRemove {
		t.Errorf("remove+write = %s, want remove", op)
	}
	w.queue(Event{Path: "/a", Op: OpCreate, Time: now})
	if op := w.pending["/a"].Op; op != OpCreate {
		t.Errorf("remove+create = %s, want create", op)
	}
}

func TestWatcher_HandlerPanicRecovered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	w, err := New(WithDebounce(0))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	var c collector
	w.OnChange(func(Event) { panic("handler bug") })
	w.OnChange(c.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.wait(t, 1)
}

func TestWatcher_UnwatchAndClose(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a"), filepath.Join(dir, "b")

	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(a); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(b); err != nil {
		t.Fatal(err)
	}
	if got := w.WatchedFiles(); len(got) != 2 || got[0] != a {
		t.Errorf("WatchedFiles = %v", got)
	}
	if err := w.Unwatch(a); err != nil {
		t.Fatal(err)
	}
	if w.dirs[dir] != 1 {
		t.Errorf("dir refcount = %d, want 1", w.dirs[dir])
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if err := w.Watch(a); err != ErrClosed {
		t.Errorf("Watch after Close = %v, want ErrClosed", err)
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(filepath.Join(t.TempDir(), "nope", "config.toml")); err == nil {
		t.Error("Watch in a missing directory should fail")
	}
}
