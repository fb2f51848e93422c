package confloader

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestNewWatcher_WithLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	w, err := NewWatcher(WithWatcherLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if w.logger != logger {
		t.Error("WithWatcherLogger() option not applied")
	}
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w := newTestWatcher(t)
	if err := w.Watch("/nonexistent/dir/brainsync.yaml"); err == nil {
		t.Error("expected an error watching a missing directory")
	}
}

func TestWatcher_FileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brainsync.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	var changed atomic.Value
	w.OnChange(func(p string) { changed.Store(p) })
	w.StartAsync()

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, func() bool { return changed.Load() != nil }) {
		t.Fatal("callback not called after file change")
	}
	if got := changed.Load().(string); got != path {
		t.Errorf("callback path = %q, want %q", got, path)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brainsync.yaml")
	os.WriteFile(path, []byte("a: 1\n"), 0644)

	w := newTestWatcher(t)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })
	w.StartAsync()

	os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("b: 2\n"), 0644)
	time.Sleep(100 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("callback fired %d times for an unwatched file", calls.Load())
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		w.Start()
		close(done)
	}()

	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() = %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Start() did not return after Stop()")
	}
}
