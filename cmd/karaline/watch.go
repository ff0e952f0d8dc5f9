package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"karolbroda.com/karaline/internal/lyrics"
)

// editors write in bursts, wait for the file to settle
const reloadDebounce = 150 * time.Millisecond

type reloader interface {
	Reload(store *lyrics.Store)
}

// watchLyrics reloads path into d whenever it changes on disk. The
// directory is watched, not the file, so editors that save by rename keep
// working.
func watchLyrics(ctx context.Context, path string, d reloader, out presenter) (func(), error) {
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to watch lyrics: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("unable to watch %s: %w", filepath.Dir(path), err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		var settle <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					settle = time.After(reloadDebounce)
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("watch error", "path", path, "err", err)

			case <-settle:
				settle = nil
				_, store, err := readLRCFile(path)
				if err != nil {
					// keep playing the last good version
					out.status("", err)
					continue
				}
				d.Reload(store)
				log.Debug("lyrics reloaded", "path", path, "tokens", store.Count())
				out.status("reloaded "+filepath.Base(path), nil)
			}
		}
	}()

	return func() {
		_ = w.Close()
		<-done
	}, nil
}
