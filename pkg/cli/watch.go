package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/atlasforge/atlasforge/pkg/logger"
	"github.com/atlasforge/atlasforge/pkg/types"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-export automatically when assets or scripts change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProjectConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watchAndExport(ctx, cfg)
		},
	}
}

// watchAndExport runs an initial export, then re-exports after changes
// settle. Events arriving during an export queue exactly one follow-up
// run.
func watchAndExport(ctx context.Context, cfg *types.ExportConfig) error {
	log := logger.CreateLogger("", verbosity)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range []string{cfg.AssetsDir, cfg.ScriptsDir} {
		if root == "" {
			continue
		}
		if err := addRecursive(watcher, root, cfg, log); err != nil {
			log.Warn("Failed to watch directory",
				logger.WithField("dir", root),
				logger.WithField("error", err))
		}
	}

	if err := runExport(ctx, cfg); err != nil {
		log.Error("Initial export failed", logger.WithField("error", err))
	}

	settling := time.Duration(cfg.Watch.GetSettlingDelay()) * time.Millisecond
	var settleTimer *time.Timer
	settleCh := make(chan struct{}, 1)

	log.Info("Watching for changes", logger.WithField("settling", settling))

	for {
		select {
		case <-ctx.Done():
			log.Info("Watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isExcluded(event.Name, cfg) {
				continue
			}
			// New directories must be added to the watch set.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name, cfg, log)
				}
			}
			log.Debug("Change detected", logger.WithField("path", event.Name))
			if settleTimer == nil {
				settleTimer = time.AfterFunc(settling, func() { settleCh <- struct{}{} })
			} else {
				settleTimer.Reset(settling)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error", logger.WithField("error", err))

		case <-settleCh:
			settleTimer = nil
			if err := runExport(ctx, cfg); err != nil {
				log.Error("Export failed", logger.WithField("error", err))
			}
		}
	}
}

// addRecursive adds a directory tree to the watcher
func addRecursive(watcher *fsnotify.Watcher, root string, cfg *types.ExportConfig, log logger.Logger) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if isExcluded(path, cfg) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			log.Warn("Failed to watch directory",
				logger.WithField("dir", path),
				logger.WithField("error", err))
		}
		return nil
	})
}

// isExcluded filters the output directory, the cache, and configured
// exclusion substrings out of the watch set.
func isExcluded(path string, cfg *types.ExportConfig) bool {
	if strings.HasPrefix(path, cfg.OutputDir) {
		return true
	}
	if strings.Contains(path, ".atlasforge") {
		return true
	}
	if cfg.Watch != nil {
		for _, pattern := range cfg.Watch.Exclusions {
			if strings.Contains(path, pattern) {
				return true
			}
		}
	}
	return false
}
