package buildmatrix

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// DefaultDebounce coalesces bursts of file events into one re-run.
const DefaultDebounce = 500 * time.Millisecond

// Watch runs the config at path now and again after every change to it,
// debounced. Each run's report (or load/run error) is handed to onRun; load
// failures keep the watch alive so a broken edit can be fixed. Watch returns
// when ctx ends.
func (r *Runner) Watch(ctx context.Context, path string, debounce time.Duration, onRun func(*Report, error)) error {
	if onRun == nil {
		return ErrCallbackMustBeSet
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "unable to create watcher")
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which silently
	// drops a watch on the file itself.
	dir := filepath.Dir(path)
	err = watcher.Add(dir)
	if err != nil {
		return errors.Wrapf(err, "unable to watch %s", dir)
	}

	base := filepath.Base(path)

	run := func() {
		cfg, err := Load(path)
		if err != nil {
			onRun(nil, err)

			return
		}

		report, err := r.Run(ctx, cfg)
		onRun(report, err)
	}

	run()

	var timer *time.Timer
	var timerC <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(event.Name) != base {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			r.logger.Debug().
				Str("event", "watch.change").
				Str("file", event.Name).
				Msg("config changed")

			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C

				continue
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			r.logger.Error().
				Err(err).
				Str("event", "watch.error").
				Msg("watcher error")
		case <-timerC:
			timer = nil
			timerC = nil

			run()
		}
	}
}
