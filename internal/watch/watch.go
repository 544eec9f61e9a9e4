// Package watch formats test files as they are saved and reloads the
// configuration file when it changes.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"eachfmt/internal/config"
	"eachfmt/internal/logging"
	"eachfmt/internal/runner"
	"eachfmt/internal/syntax/treesitter"
	"eachfmt/internal/workspace"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultDebounce = 300 * time.Millisecond
	tickInterval    = 50 * time.Millisecond
	writtenCacheLen = 1024
)

// Options configure a Watcher.
type Options struct {
	// Debounce is how long a path must stay quiet before it is processed.
	Debounce time.Duration
	Matcher  *workspace.Matcher
	// OnResult, if set, receives every format attempt.
	OnResult func(runner.FileResult)
}

// Stats counts watcher activity.
type Stats struct {
	Events     int
	Formatted  int
	Unchanged  int
	SelfWrites int
	Skipped    int // format on save disabled
	Reloads    int
	Errors     int
}

// Watcher watches directory trees and formats supported files on save.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	roots       []string
	configPath  string
	live        *config.Live
	matcher     *workspace.Matcher
	onResult    func(runner.FileResult)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	// written maps a path to what we last wrote to it.
	written *lru.Cache[string, writtenEntry]
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stats   Stats
}

// writtenEntry is a file we wrote: the hash of its content and the character
// width it was formatted with.
type writtenEntry struct {
	hash  uint64
	width float64
}

// New creates a Watcher over roots. Settings are read from live for every
// file, and live is reloaded when its config file changes.
func New(roots []string, live *config.Live, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Matcher == nil {
		opts.Matcher = &workspace.Matcher{}
	}
	written, _ := lru.New[string, writtenEntry](writtenCacheLen)

	w := &Watcher{
		watcher:     fw,
		live:        live,
		matcher:     opts.Matcher,
		onResult:    opts.OnResult,
		debounceMap: make(map[string]time.Time),
		debounceDur: opts.Debounce,
		written:     written,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.roots = append(w.roots, abs)
	}
	if live != nil && live.Path() != "" {
		if abs, err := filepath.Abs(live.Path()); err == nil {
			w.configPath = abs
		}
	}
	return w, nil
}

// Start adds the watches and begins processing events in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			w.watcher.Close()
			return err
		}
		logging.Watch("watching %s", root)
	}
	if w.configPath != "" {
		dir := filepath.Dir(w.configPath)
		if err := w.watcher.Add(dir); err != nil {
			logging.Get(logging.CategoryWatch).Warn("cannot watch config directory %s: %v", dir, err)
		}
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// addTree watches dir and every directory below it that is not skipped.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skipDir(path, d.Name()) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) skipDir(path, name string) bool {
	if name == "node_modules" || name == ".git" {
		return true
	}
	rel, ok := w.rel(path)
	return ok && w.matcher.Excluded(rel+"/")
}

// rel returns path relative to the root containing it.
func (w *Watcher) rel(path string) (string, bool) {
	for _, root := range w.roots {
		r, err := filepath.Rel(root, path)
		if err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return r, true
		}
	}
	return "", false
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	path := filepath.Clean(event.Name)

	if path != w.configPath {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if !w.skipDir(path, info.Name()) {
					if err := w.addTree(path); err != nil {
						logging.Get(logging.CategoryWatch).Warn("cannot watch %s: %v", path, err)
					}
				}
				return
			}
		}
		rel, ok := w.rel(path)
		if !ok || !w.matcher.Match(rel) {
			return
		}
		if _, ok := treesitter.LanguageFor(path, nil); !ok {
			return
		}
	}

	logging.WatchDebug("%s %s", event.Op, path)
	w.mu.Lock()
	w.stats.Events++
	w.debounceMap[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		if path == w.configPath {
			w.reloadConfig()
			continue
		}
		w.formatOnSave(ctx, path)
	}
}

func (w *Watcher) reloadConfig() {
	if err := w.live.Reload(); err != nil {
		w.count(func(s *Stats) { s.Errors++ })
		return
	}
	w.count(func(s *Stats) { s.Reloads++ })
	logging.Watch("reloaded %s", w.configPath)
}

func (w *Watcher) formatOnSave(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Get(logging.CategoryWatch).Error("read %s: %v", path, err)
			w.count(func(s *Stats) { s.Errors++ })
		}
		return
	}
	settings := w.live.Snapshot()
	// A write formatted under another width is stale and gets formatted again.
	if e, ok := w.written.Get(path); ok && e.hash == xxhash.Sum64(content) && e.width == settings.CharacterWidth {
		logging.WatchDebug("skipping our own write to %s", path)
		w.count(func(s *Stats) { s.SelfWrites++ })
		return
	}

	if !settings.FormatOnSave {
		w.count(func(s *Stats) { s.Skipped++ })
		return
	}

	res := runner.FormatFile(ctx, path, runner.Options{Mode: runner.ModeWrite, Settings: settings})
	switch {
	case res.Err != nil:
		logging.Get(logging.CategoryWatch).Warn("%v", res.Err)
		w.count(func(s *Stats) { s.Errors++ })
	case res.Written:
		w.written.Add(path, writtenEntry{hash: xxhash.Sum64(res.Output), width: settings.CharacterWidth})
		w.count(func(s *Stats) { s.Formatted++ })
		logging.Watch("formatted %s", path)
	default:
		w.count(func(s *Stats) { s.Unchanged++ })
	}
	if w.onResult != nil {
		w.onResult(res)
	}
}

func (w *Watcher) count(update func(*Stats)) {
	w.mu.Lock()
	update(&w.stats)
	w.mu.Unlock()
}
