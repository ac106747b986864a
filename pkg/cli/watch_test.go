package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

// syncBuffer is a bytes.Buffer safe for the watcher goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestDebouncerCoalescesChanges(t *testing.T) {
	flushed := make(chan []string, 4)
	d := newDebouncer(50*time.Millisecond, func(paths []string) { flushed <- paths })
	defer d.stop()

	d.add("/b.yml")
	d.add("/a.yml")
	d.add("/b.yml")

	select {
	case paths := <-flushed:
		if strings.Join(paths, ",") != "/a.yml,/b.yml" {
			t.Errorf("flushed %v, want [/a.yml /b.yml]", paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never flushed")
	}

	select {
	case paths := <-flushed:
		t.Errorf("unexpected second flush %v", paths)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncerStop(t *testing.T) {
	flushed := make(chan []string, 1)
	d := newDebouncer(50*time.Millisecond, func(paths []string) { flushed <- paths })
	d.add("/a.yml")
	d.stop()

	select {
	case paths := <-flushed:
		t.Errorf("stopped debouncer flushed %v", paths)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatchSetRelevant(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	known := writeFile(t, other, "known.yml", validPipeline)
	schemaPath := writeFile(t, other, "schema.json", "{}")

	ws := newWatchSet([]string{dir}, []string{known}, schemaPath)

	tests := []struct {
		path string
		want bool
	}{
		{known, true},
		{schemaPath, true},
		{filepath.Join(dir, "new.yml"), true},
		{filepath.Join(dir, "nested", "new.yaml"), true},
		{filepath.Join(dir, "notes.txt"), false},
		{filepath.Join(other, "unknown.yml"), false},
	}
	for _, tt := range tests {
		if got := ws.relevant(tt.path); got != tt.want {
			t.Errorf("relevant(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}

	ws.track([]string{filepath.Join(other, "unknown.yml")})
	if !ws.relevant(filepath.Join(other, "unknown.yml")) {
		t.Error("tracked file should be relevant")
	}
	if got := len(ws.all()); got != 2 {
		t.Errorf("expected 2 tracked files, got %d", got)
	}

	dirs := ws.directories()
	if strings.Join(dirs, ",") != strings.Join(sortedPair(dir, other), ",") {
		t.Errorf("directories() = %v", dirs)
	}
}

func sortedPair(a, b string) []string {
	if a > b {
		a, b = b, a
	}
	return []string{a, b}
}

func TestWatchEventsForwardsChanges(t *testing.T) {
	dir := t.TempDir()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		t.Fatalf("failed to watch %s: %v", dir, err)
	}

	flushed := make(chan []string, 8)
	d := newDebouncer(50*time.Millisecond, func(paths []string) { flushed <- paths })
	ws := newWatchSet([]string{dir}, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchEvents(ctx, watcher, ws, d, false) }()

	writeFile(t, dir, "ignored.txt", "x")
	path := writeFile(t, dir, "pipeline.yml", validPipeline)

	select {
	case paths := <-flushed:
		if len(paths) != 1 || paths[0] != path {
			t.Errorf("flushed %v, want [%s]", paths, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change was forwarded")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchEvents() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watchEvents did not stop after cancellation")
	}
}

func TestRunWatchRevalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pipeline.yml", validPipeline)

	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunWatch(ctx, &out, []string{dir}, []string{path}, Options{MaxConcurrency: 1})
	}()

	if !waitFor(t, 5*time.Second, func() bool { return strings.Contains(out.String(), "No problems found") }) {
		cancel()
		t.Fatalf("initial validation missing:\n%s", out.String())
	}

	if err := os.WriteFile(path, []byte(invalidPipeline), 0644); err != nil {
		cancel()
		t.Fatalf("failed to update file: %v", err)
	}
	if !waitFor(t, 5*time.Second, func() bool { return strings.Contains(out.String(), "error:") }) {
		t.Errorf("change was not revalidated:\n%s", out.String())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunWatch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWatch did not stop after cancellation")
	}
}
