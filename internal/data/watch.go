package data

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the pool from path whenever the file is written, created or
// renamed into place. The parent directory is watched so editors that replace
// the file atomically are picked up. onReload, if non-nil, is called after
// each reload attempt with its error. A failed reload keeps the previous
// exemplars. Watch returns once the watcher is installed; it stops when ctx
// is done.
func (p *Pool) Watch(ctx context.Context, path string, onReload func(error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != abs {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				err := p.reload(abs)
				if onReload != nil {
					onReload(err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onReload != nil {
					onReload(fmt.Errorf("watcher: %w", err))
				}
			}
		}
	}()
	return nil
}

func (p *Pool) reload(path string) error {
	exemplars, err := LoadFile(path, "")
	if err != nil {
		return err
	}
	return p.Replace(exemplars)
}
