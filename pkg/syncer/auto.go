package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openfroyo/agentcore/pkg/model"
)

// DefaultDebounce is the quiet period Watch waits for after a change.
const DefaultDebounce = 2 * time.Second

// ShouldAutoSync reports whether an automatic push is due: cloud and auto sync
// are enabled and no full sync happened within the interval.
func ShouldAutoSync(cfg model.SyncConfig, now time.Time) bool {
	if !cfg.CloudConfigEnabled || !cfg.AutoSyncEnabled {
		return false
	}
	if cfg.LastFullSync == nil {
		return true
	}
	interval := time.Duration(cfg.SyncIntervalMinutes) * time.Minute
	return now.Sub(*cfg.LastFullSync) > interval
}

// AutoSync pushes when ShouldAutoSync says a push is due. It returns a nil run
// when nothing was done. Conflicts are never forced.
func (e *Engine) AutoSync(ctx context.Context) (*Run, error) {
	doc, _, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ShouldAutoSync(doc.GlobalResources.SyncConfig, e.now()) {
		e.logger.Debug().Msg("Auto sync not due")
		return nil, nil
	}
	return e.push(ctx, OpAuto, PushOptions{})
}

// Watch runs AutoSync whenever the local document changes, after debounce of
// quiet. It blocks until ctx is done.
func (e *Engine) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// The store replaces the file by rename, so watch the directory.
	path, err := filepath.Abs(e.store.Path())
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	e.logger.Info().Str("path", path).Dur("debounce", debounce).Msg("Watching configuration for changes")

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			e.logger.Debug().Str("op", event.Op.String()).Msg("Configuration changed")
			timer.Reset(debounce)

		case <-timer.C:
			run, err := e.AutoSync(ctx)
			switch {
			case err != nil:
				e.logger.Error().Err(err).Msg("Auto sync failed")
			case run != nil:
				e.logger.Info().Str("run_id", run.ID).Str("state", string(run.State())).Msg("Auto sync pushed configuration")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}
