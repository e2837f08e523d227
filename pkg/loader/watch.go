package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/elements/pkg/element"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// WatchConfig configures a Watcher.
type WatchConfig struct {
	// Dirs are the directories to watch, recursively.
	Dirs []string

	// Debounce delays applying a document after its last change.
	Debounce time.Duration
}

// Applied describes one document the watcher applied.
type Applied struct {
	Location string
	Handles  []*element.Handle
	Err      error
}

// Watcher applies documents that appear under watched directories.
// Documents the loader already applied are not re-applied: the first
// definition of a name wins, so a changed document only takes effect on
// restart.
type Watcher struct {
	loader   *Loader
	logger   *slog.Logger
	debounce time.Duration
	dirs     []string
	fsw      *fsnotify.Watcher
	onApply  func(Applied)
}

// NewWatcher creates a watcher feeding l and starts watching cfg.Dirs.
func NewWatcher(l *Loader, cfg WatchConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	w := &Watcher{
		loader:   l,
		logger:   l.logger,
		debounce: cfg.Debounce,
		dirs:     cfg.Dirs,
		fsw:      fsw,
	}
	for _, dir := range cfg.Dirs {
		if err := w.addTree(dir); err != nil {
			fsw.Close()
			return nil, unavailable(dir, err)
		}
	}
	return w, nil
}

// OnApply sets a callback invoked after each document is applied.
func (w *Watcher) OnApply(fn func(Applied)) {
	w.onApply = fn
}

// Run watches until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching for declaration documents", slog.Any("dirs", w.dirs))

	var (
		timer   *time.Timer
		pending = make(map[string]struct{})
	)
	fire := func() <-chan time.Time {
		if timer != nil {
			return timer.C
		}
		return nil
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire():
			timer = nil
			for _, path := range slices.Sorted(maps.Keys(pending)) {
				w.apply(ctx, path)
			}
			clear(pending)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// relevant filters events down to created or written documents, and
// starts watching new subdirectories.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("cannot watch directory",
					slog.String("dir", ev.Name),
					slog.String("error", err.Error()))
			}
			return false
		}
	}
	return Supported(ev.Name)
}

func (w *Watcher) apply(ctx context.Context, path string) {
	if w.loader.Seen(path) {
		w.logger.Info("document changed, keeping the definitions already applied",
			slog.String("location", path))
		return
	}
	handles, err := w.loader.LoadDocument(ctx, FileSource{Path: path}, path)
	if err != nil {
		w.logger.Error("document failed to apply",
			slog.String("location", path),
			slog.String("error", err.Error()))
	}
	if w.onApply != nil {
		w.onApply(Applied{Location: path, Handles: handles, Err: err})
	}
}
