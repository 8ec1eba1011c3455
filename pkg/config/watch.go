package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/async"
	"github.com/platinummonkey/ioevents/pkg/observability"
)

// WatchFile reloads the configuration whenever the file at path is written
// or replaced and passes each valid result to onChange. Invalid files are
// logged and skipped. The watch runs until ctx is done; the returned channel
// closes when it has stopped.
func WatchFile(ctx context.Context, path string, logger *logrus.Logger, onChange func(*Config)) (<-chan struct{}, error) {
	logger = observability.OrDefault(logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory so editors that replace the file are still seen
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	done := async.SafeGo(ctx, logger, 0, "config watcher", func(ctx context.Context) error {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				cfg, err := Load(target)
				if err != nil {
					logger.WithError(err).WithField("path", target).Warn("Ignoring invalid configuration change")
					continue
				}
				logger.WithField("path", target).Info("Configuration reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.WithError(err).Warn("Configuration watcher error")
			}
		}
	})

	return done, nil
}
