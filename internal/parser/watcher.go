package parser

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the file watcher
type WatcherConfig struct {
	// Root is the analysis root to watch recursively.
	Root string

	// Debounce is how long to wait for more changes before emitting a batch.
	Debounce time.Duration

	// Match selects relevant root-relative paths; nil accepts everything.
	Match func(rel string) bool

	Logger *slog.Logger
}

// Watcher emits batches of changed source paths (root-relative, sorted).
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}

	changes chan []string
	once    sync.Once
}

func NewWatcher(config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = 250 * time.Millisecond
	}
	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  config.Logger,
		pending: make(map[string]struct{}),
		changes: make(chan []string, 16),
	}, nil
}

// Changes returns the channel of change batches. It is closed when the
// watcher stops.
func (w *Watcher) Changes() <-chan []string { return w.changes }

// Start adds watches and processes events until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}
	go w.processEvents(ctx)
	w.logger.Info("file watcher started", "root", w.config.Root, "debounce", w.config.Debounce)
	return nil
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func skipDir(path, root string) bool {
	base := filepath.Base(path)
	return path != root && (strings.HasPrefix(base, ".") || base == "vendor" || base == "node_modules")
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if skipDir(path, root) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.once.Do(func() { close(w.changes) })
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !skipDir(path, w.config.Root) {
				if err := w.watcher.Add(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if w.config.Match != nil && !w.config.Match(rel) {
		return
	}
	w.pendingMu.Lock()
	w.pending[rel] = struct{}{}
	w.pendingMu.Unlock()
	w.logger.Debug("file change detected", "path", rel, "op", event.Op.String())
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		batch = append(batch, p)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(batch)
	select {
	case w.changes <- batch:
	default:
		w.logger.Warn("change channel full, dropping batch", "files", len(batch))
	}
}
