package source

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of filesystem events into one callback.
const DefaultDebounce = 500 * time.Millisecond

// relevant reports whether an event should trigger a re-ingest.
func relevant(ev fsnotify.Event, exts map[string]bool) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return Match(ev.Name, exts)
}

// Watch calls fn after matching files in dir change, until ctx is done.
// Events arriving within debounce of each other produce one call. An error
// from fn is logged and watching continues.
func Watch(ctx context.Context, dir string, exts []string, debounce time.Duration, log *zap.Logger, fn func(context.Context) error) error {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	set := ExtSet(exts)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrRead, dir, err)
	}
	log.Info("watching for changes", zap.String("dir", dir))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, set) {
				continue
			}
			log.Debug("change detected", zap.String("file", filepath.Base(ev.Name)), zap.Stringer("op", ev.Op))
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			if err := fn(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error("re-ingest failed", zap.Error(err))
			}
		}
	}
}
