package auth

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Watch reloads the directory from path whenever the file changes, until ctx
// is cancelled. The parent directory is watched so editors that replace the
// file on save are handled. A failed reload keeps the previous users.
func (d *Directory) Watch(ctx context.Context, fs afero.Fs, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				d.logger.Debug("Users file watcher stopped")
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := d.LoadFile(fs, target); err != nil {
					d.logger.Error("Failed to reload users file", "path", target, "error", err)
					continue
				}
				d.logger.Info("Users file reloaded", "path", target)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.logger.Error("Users file watcher error", "error", err)
			}
		}
	}()

	d.logger.Debug("Watching users file", "path", target)
	return nil
}
