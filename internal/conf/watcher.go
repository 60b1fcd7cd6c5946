package conf

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EngineWatcher reloads the engine config when its file changes
type EngineWatcher struct {
	path     string
	onChange func(*EngineConfig)
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

// NewEngineWatcher creates a watcher for path. onChange receives every
// config that parses; broken edits are logged and ignored.
func NewEngineWatcher(path string, onChange func(*EngineConfig), log *zap.Logger) *EngineWatcher {
	return &EngineWatcher{
		path:     path,
		onChange: onChange,
		logger:   log.Named("config"),
	}
}

// Start begins watching until ctx is done
func (w *EngineWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.path); err != nil {
		watcher.Close() //nolint:errcheck
		return err
	}
	w.watcher = watcher

	go w.watchLoop(ctx)
	w.logger.Info("engine_config_watching", zap.String("path", w.path))
	return nil
}

func (w *EngineWatcher) watchLoop(ctx context.Context) {
	defer w.watcher.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("engine_config_watch_error", zap.Error(err))
		}
	}
}

func (w *EngineWatcher) handleFileEvent(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
		w.reload()
		return
	}

	// Editors often replace the file; re-add the watch once it is back
	if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
		go w.rewatch(ctx)
	}
}

func (w *EngineWatcher) rewatch(ctx context.Context) {
	for range 10 {
		if _, err := os.Stat(w.path); err == nil && w.watcher.Add(w.path) == nil {
			w.reload()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
	w.logger.Warn("engine_config_rewatch_failed", zap.String("path", w.path))
}

func (w *EngineWatcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("engine_config_read_failed", zap.Error(err))
		return
	}
	config, err := ParseEngineConfig(data)
	if err != nil {
		w.logger.Warn("engine_config_invalid_keeping_previous", zap.Error(err))
		return
	}
	w.logger.Info("engine_config_reloaded", zap.String("path", w.path))
	w.onChange(config)
}
