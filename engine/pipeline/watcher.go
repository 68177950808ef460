package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

// DefaultSettle is how long an object must go unwritten before it is handled.
const DefaultSettle = 500 * time.Millisecond

// Watcher turns files appearing under <root>/<bucket>/ into single-record
// storage events. Every directory directly under root is a bucket; buckets
// created while watching are picked up. Keys are file names, so objects in
// nested directories are not seen.
//
// An object is handled once, after neither a create nor a write has touched
// it for the settle period, so a plain copy is seen with its full contents.
// An object rewritten after it was handled is handled again.
type Watcher struct {
	root   string
	h      Handler
	log    *slog.Logger
	settle time.Duration

	// Owned by the watch loop.
	pending map[string]*pendingObject
	ready   chan settled
	gen     uint64
}

type pendingObject struct {
	timer *time.Timer
	gen   uint64
}

type settled struct {
	path string
	gen  uint64
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettle sets the quiet period an object needs before it is handled.
// Non-positive values keep DefaultSettle.
func WithSettle(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// NewWatcher creates a watcher over root.
func NewWatcher(root string, h Handler, log *slog.Logger, opts ...WatcherOption) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{root: root, h: h, log: log, settle: DefaultSettle}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Watch starts watching and returns a channel for unrecoverable watcher
// errors. The channel is closed when ctx is done. Call it at most once per
// Watcher.
func (w *Watcher) Watch(ctx context.Context) (<-chan error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.addBucket(watcher, filepath.Join(w.root, e.Name())); err != nil {
				watcher.Close()
				return nil, err
			}
		}
	}

	w.pending = make(map[string]*pendingObject)
	w.ready = make(chan settled)

	errorsCh := make(chan error, 1)
	go func() {
		defer close(errorsCh)
		defer watcher.Close()
		defer w.stopPending()

		for {
			select {
			case <-ctx.Done():
				w.log.Info("watcher stopped")
				return
			case s := <-w.ready:
				w.handleSettled(ctx, s)
			case event, ok := <-watcher.Events:
				if !ok {
					errorsCh <- fmt.Errorf("watcher events channel closed unexpectedly")
					return
				}
				w.handleEvent(ctx, watcher, event)
			case err, ok := <-watcher.Errors:
				if !ok {
					errorsCh <- fmt.Errorf("watcher errors channel closed unexpectedly")
					return
				}
				w.log.Warn("watcher error", "err", err)
			}
		}
	}()
	return errorsCh, nil
}

func (w *Watcher) addBucket(watcher *fsnotify.Watcher, dir string) error {
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch bucket %s: %w", dir, err)
	}
	w.log.Info("watching bucket", "bucket", filepath.Base(dir))
	return nil
}

func (w *Watcher) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.forget(event.Name)
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	dir, name := filepath.Split(event.Name)
	if strings.HasPrefix(name, ".") {
		return
	}
	dir = filepath.Clean(dir)

	info, err := os.Stat(event.Name)
	if err != nil {
		w.log.Debug("watcher: object vanished", "path", event.Name, "err", err)
		return
	}

	if dir == filepath.Clean(w.root) {
		if info.IsDir() && event.Has(fsnotify.Create) {
			if err := w.addBucket(watcher, event.Name); err != nil {
				w.log.Warn("watcher: new bucket", "err", err)
			}
		}
		return
	}
	if info.IsDir() || filepath.Dir(dir) != filepath.Clean(w.root) {
		return
	}
	w.schedule(ctx, event.Name)
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}
	w.gen++
	s := settled{path: path, gen: w.gen}
	w.pending[path] = &pendingObject{
		gen: s.gen,
		timer: time.AfterFunc(w.settle, func() {
			select {
			case w.ready <- s:
			case <-ctx.Done():
			}
		}),
	}
}

func (w *Watcher) forget(path string) {
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopPending() {
	for path := range w.pending {
		w.forget(path)
	}
}

// handleSettled emits the event for an object whose timer fired, unless a
// later write restarted the timer in the meantime.
func (w *Watcher) handleSettled(ctx context.Context, s settled) {
	p, ok := w.pending[s.path]
	if !ok || p.gen != s.gen {
		return
	}
	delete(w.pending, s.path)

	if _, err := os.Stat(s.path); err != nil {
		w.log.Debug("watcher: object vanished", "path", s.path, "err", err)
		return
	}
	bucket, key := filepath.Base(filepath.Dir(s.path)), filepath.Base(s.path)
	ev := domain.NewStorageEvent(bucket, key)
	if _, err := w.h.Handle(ctx, ev); err != nil {
		w.log.Warn("watcher: event failed", "bucket", bucket, "key", key, "err", err)
	}
}
