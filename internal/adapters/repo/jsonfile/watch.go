package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/fsnotify/fsnotify"
)

// Watch emits the stored ACT each time its document is written. Saves replace
// the file by rename, so the directory is watched rather than the file.
func (r *Repository) Watch(ctx context.Context, sessionID string) (<-chan domain.ACT, error) {
	path, err := r.pathFor(sessionID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.dir, dirMode); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch storage dir: %w", err)
	}

	updates := make(chan domain.ACT)
	go func() {
		defer close(updates)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				r.mu.RLock()
				act, err := readDocument(path)
				r.mu.RUnlock()
				if err != nil {
					continue
				}
				select {
				case updates <- act:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return updates, nil
}
