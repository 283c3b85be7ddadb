package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
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

func TestWatchAndUnwatch(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t)

	a := filepath.Join(dir, "a.toml")
	b := filepath.Join(dir, "b.toml")
	if err := w.Watch(a); err != nil {
		t.Fatalf("Watch(a): %v", err)
	}
	if err := w.Watch(b); err != nil {
		t.Fatalf("Watch(b): %v", err)
	}
	if err := w.Watch(a); err != nil {
		t.Errorf("second Watch(a): %v", err)
	}
	if n := len(w.WatchedFiles()); n != 2 {
		t.Errorf("watching %d files, want 2", n)
	}

	if err := w.Unwatch(a); err != nil {
		t.Errorf("Unwatch(a): %v", err)
	}
	if err := w.Unwatch(b); err != nil {
		t.Errorf("Unwatch(b): %v", err)
	}
	if n := len(w.WatchedFiles()); n != 0 {
		t.Errorf("watching %d files, want 0", n)
	}
}

func TestWatchMissingDir(t *testing.T) {
	w := newWatcher(t)
	if err := w.Watch(filepath.Join(t.TempDir(), "missing", "x.toml")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestDetectsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appwiki.toml")
	if err := os.WriteFile(path, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t, WithDebounce(0))
	var rec recorder
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("a = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "write event", func() bool { return rec.count() > 0 })

	abs, _ := filepath.Abs(path)
	if got := rec.last().Path; got != abs {
		t.Errorf("path = %q, want %q", got, abs)
	}
}

func TestIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appwiki.toml")

	w := newWatcher(t, WithDebounce(0))
	var rec recorder
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Errorf("got %d events for an unwatched sibling", n)
	}
}

func TestDebounceCollapsesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appwiki.toml")

	w := newWatcher(t, WithDebounce(150*time.Millisecond))
	var rec recorder
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, "debounced event", func() bool { return rec.count() > 0 })
	time.Sleep(300 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("got %d events, want 1", n)
	}
}

func TestClose(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Watch(filepath.Join(t.TempDir(), "x")); err != ErrClosed {
		t.Errorf("Watch after Close: err = %v", err)
	}
}
