package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zheng/codegraph/internal/analyzer"
	"github.com/zheng/codegraph/internal/graph"
)

// DefaultDebounceDelay is how long the watcher waits for changes to settle
const DefaultDebounceDelay = 500 * time.Millisecond

// Sink receives every rebuilt snapshot, typically writing it to disk
type Sink func(ctx context.Context, s *graph.Snapshot) error

// Watcher watches a project for source changes and rebuilds its graph
type Watcher struct {
	scanner   *analyzer.Scanner
	sink      Sink
	fsWatcher *fsnotify.Watcher
	logger    *slog.Logger

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// rebuilds never overlap
	runMu sync.Mutex

	// Callbacks
	onAnalysisStart func(changed []string)
	onAnalysisDone  func(stats graph.Stats, duration time.Duration)
	onError         func(error)

	// Control
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// WatcherOption configures the watcher
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDelay = d
		}
	}
}

// WithOnAnalysisStart sets the callback for when a rebuild starts
func WithOnAnalysisStart(fn func(changed []string)) WatcherOption {
	return func(w *Watcher) {
		w.onAnalysisStart = fn
	}
}

// WithOnAnalysisDone sets the callback for when a rebuild completes
func WithOnAnalysisDone(fn func(stats graph.Stats, duration time.Duration)) WatcherOption {
	return func(w *Watcher) {
		w.onAnalysisDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithLogger sets the logger for watch events
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Watcher over the scanner's project root. Every rebuilt
// snapshot is handed to sink.
func New(scanner *analyzer.Scanner, sink Sink, opts ...WatcherOption) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		scanner:       scanner,
		sink:          sink,
		fsWatcher:     fsWatcher,
		logger:        slog.Default(),
		debounceDelay: DefaultDebounceDelay,
		pendingFiles:  make(map[string]struct{}),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirs(scanner.Root()); err != nil {
		cancel()
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds every directory the scanner would walk
func (w *Watcher) addDirs(from string) error {
	return filepath.WalkDir(from, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.scanner.Root() && w.scanner.SkipsDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher and cancels a rebuild in progress. Later calls
// return the result of the first.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		w.cancel()
		close(w.done)

		w.pendingMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.pendingMu.Unlock()

		w.stopErr = w.fsWatcher.Close()
	})
	return w.stopErr
}

// Rebuild scans the project and hands the snapshot to the sink
func (w *Watcher) Rebuild(ctx context.Context) (*graph.Snapshot, error) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	snap, err := w.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if w.sink != nil {
		if err := w.sink(ctx, snap); err != nil {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
	}
	return snap, nil
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only care about write/create/remove events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// Handle new directories
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.scanner.SkipsDir(info.Name()) {
				return
			}
			if err := w.addDirs(event.Name); err != nil {
				w.reportError(fmt.Errorf("watch %s: %w", event.Name, err))
			}
			return
		}
	}

	rel, err := filepath.Rel(w.scanner.Root(), event.Name)
	if err != nil || !w.scanner.Covers(rel) {
		return
	}
	rel = filepath.ToSlash(rel)
	w.logger.Debug("source changed", "file", rel, "op", event.Op.String())

	// Add to pending files and reset debounce timer
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[rel] = struct{}{}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerAnalysis)
}

// triggerAnalysis runs the rebuild after debounce
func (w *Watcher) triggerAnalysis() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 || w.ctx.Err() != nil {
		return
	}
	sort.Strings(files)

	if w.onAnalysisStart != nil {
		w.onAnalysisStart(files)
	}

	startTime := time.Now()
	snap, err := w.Rebuild(w.ctx)
	if err != nil {
		if w.ctx.Err() == nil {
			w.reportError(fmt.Errorf("analysis failed: %w", err))
		}
		return
	}

	if w.onAnalysisDone != nil {
		w.onAnalysisDone(snap.Stats, time.Since(startTime))
	}
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
		return
	}
	w.logger.Error("watcher error", "error", err)
}

// pending returns the number of changes waiting for the debounce timer
func (w *Watcher) pending() int {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return len(w.pendingFiles)
}
