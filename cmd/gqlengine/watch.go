package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	engine "github.com/hanpama/gqlengine/internal/engine"
)

const reloadDelay = 100 * time.Millisecond

// watchSchema rebuilds the schema whenever one of paths changes and swaps it
// into eng. A schema that fails to build is logged and the previous one kept.
// Directories are watched instead of files so editors that replace files on
// save keep triggering reloads.
func watchSchema(ctx context.Context, paths []string, eng *engine.Engine, logger *zap.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := make(map[string]bool, len(paths))
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return err
			}
			dirs[dir] = true
		}
	}

	// Bursts of events are coalesced into one reload.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched[ev.Name] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(reloadDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("schema watcher", zap.Error(err))
		case <-timer.C:
			sch, err := loadSchema(paths)
			if err != nil {
				logger.Error("schema reload failed", zap.Error(err))
				continue
			}
			eng.Swap(sch)
			logger.Info("schema reloaded")
		}
	}
}
