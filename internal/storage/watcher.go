package storage

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kylixs/flareon/internal/logging"
	"github.com/labstack/gommon/log"
)

// debounceDefault is the default debounce interval for directory events.
const debounceDefault = 200 * time.Millisecond

// Watcher rescans a registry when trace files appear, change or disappear.
// It only refreshes the listing; parsed traces are never reloaded.
type Watcher struct {
	registry *Registry
	debounce time.Duration
	logger   *log.Logger
}

// NewWatcher creates a watcher for the registry's directory.
func NewWatcher(r *Registry) *Watcher {
	return &Watcher{
		registry: r,
		debounce: debounceDefault,
		logger:   logging.New("watcher"),
	}
}

// Run watches the trace directory. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.registry.Dir()); err != nil {
		return err
	}
	w.logger.Infof("Watching %s", w.registry.Dir())

	// Single debounce timer, initialized as stopped; first event starts it.
	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			if _, err := w.registry.List(); err != nil {
				w.logger.Warnf("Rescan failed: %v", err)
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.registry.Matches(event.Name) {
				continue
			}
			w.logger.Debugf("%s %s", event.Op, event.Name)

			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("Watch error: %v", err)
		}
	}
}
