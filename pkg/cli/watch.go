package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/githubnext/pipelint/pkg/console"
	"github.com/githubnext/pipelint/pkg/constants"
)

// debouncer collects changed paths and flushes them once no change arrived
// for the configured delay
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]struct{}
	timer   *time.Timer
	flush   func([]string)
}

func newDebouncer(delay time.Duration, flush func([]string)) *debouncer {
	return &debouncer{delay: delay, pending: make(map[string]struct{}), flush: flush}
}

func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	if len(paths) > 0 {
		slices.Sort(paths)
		d.flush(paths)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// watchSet decides which file system events trigger a revalidation
type watchSet struct {
	mu     sync.Mutex
	files  map[string]bool
	dirs   map[string]bool
	schema string
}

func newWatchSet(args []string, files []string, schemaPath string) *watchSet {
	ws := &watchSet{files: make(map[string]bool), dirs: make(map[string]bool)}
	for _, f := range files {
		ws.files[f] = true
	}
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(arg); err == nil {
				ws.dirs[abs] = true
			}
		}
	}
	if schemaPath != "" {
		if abs, err := filepath.Abs(schemaPath); err == nil {
			ws.schema = abs
		}
	}
	return ws
}

// relevant reports whether a change to path should trigger validation: a
// known file, a new pipeline file inside a watched directory, or the schema
func (ws *watchSet) relevant(path string) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.files[path] || path == ws.schema {
		return true
	}
	if !isPipelineFile(path) {
		return false
	}
	for dir := range ws.dirs {
		if rel, err := filepath.Rel(dir, path); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

func (ws *watchSet) track(paths []string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, p := range paths {
		ws.files[p] = true
	}
}

// directories returns the directories to register with the watcher
func (ws *watchSet) directories() []string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	set := make(map[string]bool)
	for f := range ws.files {
		set[filepath.Dir(f)] = true
	}
	for d := range ws.dirs {
		set[d] = true
	}
	if ws.schema != "" {
		set[filepath.Dir(ws.schema)] = true
	}
	dirs := make([]string, 0, len(set))
	for d := range set {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

// watchEvents forwards relevant write, create and rename events to the
// debouncer until ctx is cancelled
func watchEvents(ctx context.Context, watcher *fsnotify.Watcher, ws *watchSet, d *debouncer, verbose bool) error {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !ws.relevant(event.Name) {
				continue
			}
			if verbose {
				fmt.Fprintln(os.Stderr, console.FormatVerboseMessage(fmt.Sprintf("Detected change: %s (%s)", event.Name, event.Op)))
			}
			d.add(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			if verbose {
				fmt.Fprintln(os.Stderr, console.FormatWarningMessage(fmt.Sprintf("Watcher error: %v", err)))
			}
		case <-ctx.Done():
			d.stop()
			return nil
		}
	}
}

// RunWatch validates files once and then again whenever they, a new pipeline
// file in a watched directory, or the schema change
func RunWatch(ctx context.Context, w io.Writer, args []string, files []string, opts Options) error {
	ws := newWatchSet(args, files, opts.SchemaPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range ws.directories() {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		fmt.Fprintln(w, console.FormatLocationMessage(fmt.Sprintf("Watching %s", console.ToRelativePath(dir))))
	}

	var mu sync.Mutex
	validate := func(paths []string) {
		mu.Lock()
		defer mu.Unlock()
		if err := RunValidate(w, paths, opts); err != nil && !errors.Is(err, ErrProblemsFound) {
			fmt.Fprintln(w, console.FormatErrorMessage(err.Error()))
		}
	}

	if len(files) > 0 {
		validate(files)
	}
	if opts.Verbose {
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Press Ctrl+C to stop watching."))
	}

	d := newDebouncer(constants.WatchDebounce, func(changed []string) {
		targets := changed
		if slices.Contains(changed, ws.schema) {
			fmt.Fprintln(w, console.FormatProgressMessage("Schema changed, revalidating all files"))
			targets = ws.all()
		} else {
			fmt.Fprintln(w, console.FormatProgressMessage(fmt.Sprintf("Revalidating %d changed file(s)", len(changed))))
			ws.track(changed)
		}
		existing := targets[:0:0]
		for _, path := range targets {
			if _, err := os.Stat(path); err == nil {
				existing = append(existing, path)
			}
		}
		if len(existing) > 0 {
			validate(existing)
		}
	})
	return watchEvents(ctx, watcher, ws, d, opts.Verbose)
}

func (ws *watchSet) all() []string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	files := make([]string, 0, len(ws.files))
	for f := range ws.files {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [files or directories...]",
		Short: "Validate pipeline files whenever they change",
		Long: `Validate pipeline files once, then watch them and revalidate on every change.

Changes are debounced so a burst of writes triggers a single validation. When the
schema file changes, every watched file is validated again. Stop with Ctrl+C.

Examples:
  ` + constants.CLIName + ` watch azure-pipelines.yml
  ` + constants.CLIName + ` watch pipelines/ --schema custom-schema.yaml`,
		Run: func(cmd *cobra.Command, args []string) {
			opts, files, err := resolveOptions(cmd, args)
			if err != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
				os.Exit(1)
			}
			patterns := args
			if len(patterns) == 0 {
				patterns = []string{"."}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := RunWatch(ctx, os.Stdout, patterns, files, opts); err != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
				os.Exit(1)
			}
		},
	}
	addValidationFlags(cmd)
	return cmd
}
