// Package watch notifies on plan file changes so a running session can
// pick up replans without restarting.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces editor write bursts into one notification.
const defaultDebounce = 250 * time.Millisecond

// Handler is called with the plan path after a settled change.
type Handler func(path string)

// Watcher watches a single plan file for writes. Editors often replace
// files via rename, so the parent directory is watched and events are
// filtered to the plan path.
type Watcher struct {
	path     string
	handler  Handler
	debounce time.Duration
}

// New creates a watcher for the given plan file.
func New(path string, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watch requires a handler")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve plan path: %w", err)
	}
	return &Watcher{path: abs, handler: handler, debounce: defaultDebounce}, nil
}

// Run watches until the context is canceled. Each settled change to the
// plan file invokes the handler once.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.handler(w.path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}
