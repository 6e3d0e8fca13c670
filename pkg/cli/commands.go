package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/atlasforge/atlasforge/internal/exporter"
	"github.com/atlasforge/atlasforge/pkg/cache"
	"github.com/atlasforge/atlasforge/pkg/config"
	"github.com/atlasforge/atlasforge/pkg/filestore"
	"github.com/atlasforge/atlasforge/pkg/logger"
	"github.com/atlasforge/atlasforge/pkg/notifier"
	"github.com/atlasforge/atlasforge/pkg/types"
	"github.com/spf13/cobra"
)

// loadProjectConfig resolves and loads the project configuration,
// anchoring relative paths at the project root.
func loadProjectConfig() (*types.ExportConfig, error) {
	manager := config.NewManager()

	path := cfgFile
	if path == "" {
		found, err := manager.FindConfig(projectRoot)
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg, err := manager.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	cfg.AssetsDir = anchorPath(cfg.AssetsDir)
	cfg.ScriptsDir = anchorPath(cfg.ScriptsDir)
	cfg.SDKDir = anchorPath(cfg.SDKDir)
	cfg.OutputDir = anchorPath(cfg.OutputDir)
	if cfg.Bundle != nil {
		cfg.Bundle.Entry = anchorPath(cfg.Bundle.Entry)
	}
	return cfg, nil
}

func anchorPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectRoot, p)
}

func cacheDir() string {
	return filepath.Join(projectRoot, ".atlasforge", "cache")
}

// newExporter wires the exporter with its production collaborators
func newExporter(cfg *types.ExportConfig) (*exporter.Exporter, logger.Logger) {
	logFile := ""
	logLevel := verbosity
	if cfg.Logging != nil {
		logFile = cfg.Logging.File
		if cfg.Logging.Level != "" && verbosity == "info" {
			logLevel = string(cfg.Logging.Level)
		}
	}
	log := logger.CreateLogger(logFile, logLevel)

	store := filestore.NewOSFileStore()
	cacheManager := cache.NewManager(store, cache.NewSHA256Digester(), cacheDir(), log)

	notifierConfig := notifier.Config{Enabled: cfg.NotificationsEnabled()}
	if cfg.Notifications != nil {
		notifierConfig.SuccessSound = cfg.Notifications.SuccessSound
		notifierConfig.FailureSound = cfg.Notifications.FailureSound
	}
	sink := notifier.New(notifierConfig, log)

	exp := exporter.New(cfg, exporter.Dependencies{
		Store:  store,
		Cache:  cacheManager,
		Logger: log,
		Sink:   sink,
	})
	return exp, log
}

// runExport performs one export run and maps the outcome to an error
func runExport(ctx context.Context, cfg *types.ExportConfig) error {
	exp, _ := newExporter(cfg)

	// Abort gracefully on interrupt: running stages finish, nothing new
	// starts.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		exp.Abort()
	}()

	result, err := exp.Export(ctx)
	if err != nil {
		return err
	}
	if !result.Success {
		if result.Report.Aborted {
			return fmt.Errorf("export aborted")
		}
		if failure := result.Report.FirstFailure(); failure != nil {
			return fmt.Errorf("export failed at stage %q: %w", failure.ID, failure.Err)
		}
		return fmt.Errorf("export failed")
	}
	return nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Pack assets and assemble the web build",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProjectConfig()
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), cfg)
		},
	}
}

func newCleanCmd() *cobra.Command {
	var removeOutput bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Drop cache snapshots so the next export rebuilds everything",
		RunE: func(cmd *cobra.Command, args []string) error {
			console := logger.NewConsoleLogger()

			store := filestore.NewOSFileStore()
			cacheManager := cache.NewManager(store, cache.NewSHA256Digester(), cacheDir(), nil)
			if err := cacheManager.Invalidate("scripts"); err != nil {
				return fmt.Errorf("failed to invalidate cache: %w", err)
			}
			console.Info("Cache invalidated")

			if removeOutput {
				cfg, err := loadProjectConfig()
				if err != nil {
					return err
				}
				if err := store.RemoveDirectory(cfg.OutputDir); err != nil {
					return fmt.Errorf("failed to remove output directory: %w", err)
				}
				console.Info("Output directory removed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&removeOutput, "output", false, "also remove the output directory")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the project configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProjectConfig()
			if err != nil {
				return err
			}
			console := logger.NewConsoleLogger()
			console.Success(fmt.Sprintf("Configuration for %q is valid", cfg.ProjectName))
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [project-name]",
		Short: "Create a starter configuration in the project root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			console := logger.NewConsoleLogger()

			manager := config.NewManager()
			if existing, err := manager.FindConfig(projectRoot); err == nil {
				return fmt.Errorf("config already exists: %s", existing)
			}

			name := filepath.Base(projectRoot)
			if len(args) > 0 {
				name = args[0]
			}

			path := filepath.Join(projectRoot, config.ConfigFileNames[0])
			if err := manager.SaveConfig(path, manager.GetDefaultConfig(name)); err != nil {
				return err
			}
			console.Success(fmt.Sprintf("Created %s", path))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("📦 Atlasforge v%s\n", version)
		},
	}
}
