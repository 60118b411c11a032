package typst

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/byterings/noter/internal/apperr"
)

// DefaultDebounce collapses editor save bursts into one compile
const DefaultDebounce = 250 * time.Millisecond

// Watcher recompiles sources when they are written
type Watcher struct {
	Compiler *Compiler
	Debounce time.Duration
	// OnCompile is called after every attempt, from the watch goroutine
	OnCompile func(*Result, error)
}

// Watch blocks until ctx is done, recompiling any of the given .typ files
// when their directory reports a write or create.
func (w *Watcher) Watch(ctx context.Context, sources []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return apperr.IO("start watcher", "", err)
	}
	defer watcher.Close()

	wanted := make(map[string]bool, len(sources))
	dirs := make(map[string]bool)
	for _, s := range sources {
		abs, err := filepath.Abs(SourcePath(s))
		if err != nil {
			return err
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// directories, not files: editors often replace files on save
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return apperr.IO("watch", dir, err)
		}
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()
	log := w.Compiler.logger()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !wanted[abs] {
				continue
			}
			log.Debug("change detected", "file", abs, "op", event.Op.String())
			pending[abs] = true
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)

		case <-timer.C:
			for source := range pending {
				result, err := w.Compiler.Compile(ctx, source)
				if w.OnCompile != nil {
					w.OnCompile(result, err)
				}
			}
			clear(pending)
		}
	}
}
