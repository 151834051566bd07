package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Watch is given zero.
const DefaultDebounce = 200 * time.Millisecond

const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watch monitors dir and calls onChange after project files with extension
// ext are created, written, removed or renamed. It blocks until ctx is
// cancelled.
func Watch(ctx context.Context, dir, ext string, debounce time.Duration, onChange func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	slog.Info("watcher: watching project directory", "dir", dir)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !Relevant(event, ext) {
				continue
			}
			slog.Debug("watcher: project change", "file", filepath.Base(event.Name), "op", event.Op.String())
			timer.Reset(debounce)

		case <-timer.C:
			onChange()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher: fsnotify error", "dir", dir, "err", err)
		}
	}
}

// Relevant reports whether event can change the project list or a project's
// content.
func Relevant(event fsnotify.Event, ext string) bool {
	if event.Op&relevantOps == 0 {
		return false
	}
	return strings.HasSuffix(filepath.Base(event.Name), ext)
}
