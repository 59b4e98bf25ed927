// Package watch regenerates outputs when their binary sources change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a set of files for changes using fsnotify with a polling fallback.
//
// The parent directories are watched rather than the files themselves, since
// build tools and editors commonly replace a file by renaming over it.
type Watcher struct {
	// paths is the set of cleaned absolute paths being monitored.
	paths map[string]struct{}
	// notify delivers a signal when at least one path has changed.
	// The channel is buffered to 1 so bursts of writes coalesce.
	notify chan struct{}
	// done is closed by Close to signal goroutines to exit.
	done chan struct{}
	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	// once ensures Close is idempotent.
	once sync.Once
	// wg tracks the event loop goroutine.
	wg sync.WaitGroup
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between stat calls in polling mode.
	pollInterval time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
}

// New creates a Watcher for the given file paths.
// Paths that do not exist yet are watched and reported once they are created.
func New(paths []string) (*Watcher, error) {
	w, err := newWatcher(paths, 2*time.Second)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}

	for _, dir := range w.dirs() {
		if err := fsw.Add(dir); err != nil {
			slog.Info("cannot watch directory, falling back to polling", "path", dir, "error", err)
			fsw.Close()
			w.startPolling()
			return w, nil
		}
	}

	w.fsw = fsw
	w.wg.Add(1)
	go w.watch()
	return w, nil
}

// newPolling creates a Watcher that only uses stat-based polling.
func newPolling(paths []string, interval time.Duration) (*Watcher, error) {
	w, err := newWatcher(paths, interval)
	if err != nil {
		return nil, err
	}
	w.startPolling()
	return w, nil
}

func newWatcher(paths []string, interval time.Duration) (*Watcher, error) {
	w := &Watcher{
		paths:        make(map[string]struct{}, len(paths)),
		notify:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: interval,
		pending:      make(map[string]struct{}),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		w.paths[abs] = struct{}{}
	}
	return w, nil
}

// dirs returns the sorted set of parent directories of the watched paths.
func (w *Watcher) dirs() []string {
	seen := make(map[string]struct{})
	var dirs []string
	for p := range w.paths {
		d := filepath.Dir(p)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Notify returns a channel that receives a value whenever Pending has new entries.
func (w *Watcher) Notify() <-chan struct{} {
	return w.notify
}

// Pending returns the absolute paths that changed since the last call, sorted.
func (w *Watcher) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	clear(w.pending)
	sort.Strings(out)
	return out
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Close stops the watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	return err
}

// mark records a change to path if it is watched.
func (w *Watcher) mark(path string) {
	path = filepath.Clean(path)
	if _, ok := w.paths[path]; !ok {
		return
	}

	w.mu.Lock()
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// markExisting marks every watched path that currently exists.
func (w *Watcher) markExisting() {
	for p := range w.paths {
		if statStamp(p).exists {
			w.mark(p)
		}
	}
}

// watch loops over fsnotify events, forwarding changes to watched paths.
func (w *Watcher) watch() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.mark(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.fsw.Close()
			w.fsw = nil
			w.polling.Store(true)
			// Events may have been lost before the error; treat every source as changed.
			w.markExisting()
			w.poll()
			return
		}
	}
}

func (w *Watcher) startPolling() {
	w.polling.Store(true)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.poll()
	}()
}

// stamp identifies a file version for polling.
type stamp struct {
	exists  bool
	size    int64
	modTime time.Time
}

func statStamp(path string) stamp {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}
	}
	return stamp{exists: true, size: info.Size(), modTime: info.ModTime()}
}

// poll stats every watched path on each tick and marks those whose size or
// modification time moved.
func (w *Watcher) poll() {
	last := make(map[string]stamp, len(w.paths))
	for p := range w.paths {
		last[p] = statStamp(p)
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			for p, prev := range last {
				cur := statStamp(p)
				if cur != prev {
					last[p] = cur
					if cur.exists {
						w.mark(p)
					}
				}
			}
		}
	}
}

// Run blocks until ctx is done, calling fn with the changed paths each time
// the watcher reports changes.
func (w *Watcher) Run(ctx context.Context, fn func(paths []string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.notify:
			if changed := w.Pending(); len(changed) > 0 {
				fn(changed)
			}
		}
	}
}
