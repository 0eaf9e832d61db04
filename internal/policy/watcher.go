package policy

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates a Loader when its policy file is written or replaced.
type Watcher struct {
	watcher  *fsnotify.Watcher
	loader   *Loader
	debounce time.Duration
}

// NewWatcher watches the directory of the loader's file so editor
// rename-and-replace saves are seen too.
func NewWatcher(loader *Loader) (*Watcher, error) {
	if loader.Path() == "" {
		return nil, fmt.Errorf("no policy file to watch")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(loader.Path())); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", loader.Path(), err)
	}
	return &Watcher{
		watcher:  w,
		loader:   loader,
		debounce: 200 * time.Millisecond,
	}, nil
}

// Run blocks until ctx is cancelled. onReload, if set, receives the result
// of re-reading the file after each change.
func (w *Watcher) Run(ctx context.Context, onReload func(*Store, error)) error {
	defer w.watcher.Close()

	target := filepath.Clean(w.loader.Path())
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				w.loader.Invalidate()
				store, err := w.loader.Current()
				if err != nil {
					log.Printf("[captcha] policy reload failed: %v\n", err)
				} else {
					log.Printf("[captcha] policy reloaded from %s\n", target)
				}
				if onReload != nil {
					onReload(store, err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[captcha] policy watcher error: %v\n", err)
		}
	}
}
