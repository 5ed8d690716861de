package host

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/modulaur/modulaur/pkg/telemetry"
)

// Watcher watches the plugin roots and triggers a rescan and reload
// when extension directories change. Bursts of filesystem events are
// debounced into a single reload.
type Watcher struct {
	service  *Service
	debounce time.Duration
	logger   *telemetry.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}

	// reload is what a settled debounce window triggers. Tests swap it
	// out to observe firing without a full reload.
	reload func(ctx context.Context) (int, error)
}

// NewWatcher creates a watcher over the service's plugin roots. Roots
// that do not exist yet are skipped; they get picked up after the next
// restart.
func NewWatcher(service *Service, debounce time.Duration, logger *telemetry.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		service:  service,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	w.reload = service.ReloadAll

	for _, root := range service.cfg.Plugins.Roots {
		if err := w.watchTree(root); err != nil {
			logger.WithRoot(root).WithError(err).Warn("Cannot watch plugin root")
		}
	}
	return w, nil
}

// watchTree registers the root and its immediate extension directories.
func (w *Watcher) watchTree(root string) error {
	if err := w.fsw.Add(root); err != nil {
		return err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			// Best effort; a vanished directory is not an error.
			_ = w.fsw.Add(filepath.Join(root, e.Name()))
		}
	}
	return nil
}

// Start begins watching. It returns immediately; reloads run on a
// background goroutine until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			// A new extension directory needs its own watch to see
			// manifest writes inside it.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				// The timer may have fired between selects; drain it so
				// Reset starts a clean debounce window.
				if !timer.Stop() {
					select {
					case <-fire:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Watcher error")
		case <-fire:
			timer = nil
			fire = nil
			loaded, err := w.reload(ctx)
			if err != nil {
				w.logger.WithError(err).Warn("Reload after filesystem change failed")
				continue
			}
			w.logger.WithField("loaded", loaded).Info("Reloaded extensions after filesystem change")
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) ||
		event.Op.Has(fsnotify.Rename)
}

// Stop stops the watcher and releases its filesystem handles.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsw.Close()
}
