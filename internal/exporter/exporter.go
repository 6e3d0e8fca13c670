// Package exporter orchestrates one packaging run: it wires the sprite
// packer, the incremental cache, the task pipeline, and the batch runner
// into the export flow and assembles the web output.
package exporter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atlasforge/atlasforge/pkg/batch"
	"github.com/atlasforge/atlasforge/pkg/cache"
	"github.com/atlasforge/atlasforge/pkg/filestore"
	"github.com/atlasforge/atlasforge/pkg/logger"
	"github.com/atlasforge/atlasforge/pkg/packer"
	"github.com/atlasforge/atlasforge/pkg/pipeline"
	"github.com/atlasforge/atlasforge/pkg/types"
	"github.com/google/uuid"
)

// scriptScope is the cache scope tracking script inputs between runs
const scriptScope = "scripts"

// defaultBundleName is used when no bundle is configured
const defaultBundleName = "main.js"

// scriptExtensions are the file types hashed for change detection
var scriptExtensions = map[string]bool{
	".ts":   true,
	".js":   true,
	".mjs":  true,
	".json": true,
}

// ProgressSink receives every observable event of an export run
type ProgressSink interface {
	pipeline.Sink
	batch.Notifier
	NotifyExportComplete(project string, success bool, duration time.Duration)
}

// Dependencies contains the injectable collaborators of an Exporter.
// Store, Cache, Logger, and Sink are required; Sprites and Bundler fall
// back to the directory scanner and the pass-through bundler.
type Dependencies struct {
	Store   filestore.FileStore
	Cache   *cache.Manager
	Logger  logger.Logger
	Sink    ProgressSink
	Sprites SpriteSource
	Bundler Bundler
}

// Result is the outcome of one export run
type Result struct {
	RunID          string
	Report         *pipeline.Report
	Pack           *packer.PackResult
	SkippedSprites []string
	BundleReused   bool
	Success        bool
	Duration       time.Duration
}

// Exporter drives a full project export
type Exporter struct {
	cfg     *types.ExportConfig
	store   filestore.FileStore
	cache   *cache.Manager
	logger  logger.Logger
	sink    ProgressSink
	sprites SpriteSource
	bundler Bundler

	mu     sync.Mutex
	pipe   *pipeline.Pipeline
	runner *batch.Runner
}

// New creates an exporter for one project configuration
func New(cfg *types.ExportConfig, deps Dependencies) *Exporter {
	sprites := deps.Sprites
	if sprites == nil {
		sprites = NewDirectorySpriteSource(deps.Store, cfg.AssetsDir, deps.Logger)
	}
	bundler := deps.Bundler
	if bundler == nil {
		bundler = NewCopyBundler(deps.Store)
	}

	return &Exporter{
		cfg:     cfg,
		store:   deps.Store,
		cache:   deps.Cache,
		logger:  deps.Logger,
		sink:    deps.Sink,
		sprites: sprites,
		bundler: bundler,
	}
}

// Abort stops the current export at the next stage boundary. Running
// stages and in-flight copy jobs finish; nothing new starts.
func (e *Exporter) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pipe != nil {
		e.pipe.Abort()
	}
	if e.runner != nil {
		e.runner.Abort()
	}
}

// run carries the intermediate artifacts between pipeline stages. Stage
// dependencies order all access, so no locking is needed.
type run struct {
	sprites      []Sprite
	pack         *packer.PackResult
	skipped      []string
	scriptFiles  []string
	previous     *cache.Snapshot
	changes      *cache.ChangeSet
	bundle       []byte
	bundleReused bool
}

// Export runs the full packaging pipeline. Configuration problems return
// an error before any stage starts; stage failures are contained in the
// result's report.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	runID := uuid.New().String()
	e.logger.Info("Starting export",
		logger.WithField("project", e.cfg.ProjectName),
		logger.WithField("run", runID))

	state := &run{}
	pipe := pipeline.New(e.logger, e.sink)
	runner := batch.NewRunner(e.logger, e.sink)

	e.mu.Lock()
	e.pipe = pipe
	e.runner = runner
	e.mu.Unlock()

	tasks := []pipeline.Task{
		{
			ID:     "prepare-output",
			Weight: 1,
			Action: e.prepareOutput,
		},
		{
			ID:     "collect-sprites",
			Weight: 2,
			Action: func(ctx context.Context) error { return e.collectSprites(ctx, state) },
		},
		{
			ID:        "pack-atlas",
			DependsOn: []string{"collect-sprites"},
			Weight:    3,
			Action:    func(ctx context.Context) error { return e.packAtlas(ctx, state) },
		},
		{
			ID:     "diff-scripts",
			Weight: 1,
			Action: func(ctx context.Context) error { return e.diffScripts(ctx, state) },
		},
		{
			ID:        "bundle-scripts",
			DependsOn: []string{"diff-scripts", "prepare-output"},
			Weight:    4,
			Action:    func(ctx context.Context) error { return e.bundleScripts(ctx, state) },
		},
		{
			ID:        "copy-assets",
			DependsOn: []string{"prepare-output"},
			Weight:    3,
			Action:    func(ctx context.Context) error { return e.copyAssets(ctx, runner) },
		},
		{
			ID:        "copy-sdk",
			DependsOn: []string{"prepare-output"},
			Weight:    1,
			Action:    func(ctx context.Context) error { return e.copySDK(ctx, runner) },
		},
		{
			ID:        "emit-manifest",
			DependsOn: []string{"pack-atlas", "prepare-output"},
			Weight:    1,
			Action:    func(ctx context.Context) error { return e.emitManifest(ctx, state) },
		},
		{
			ID:        "emit-html",
			DependsOn: []string{"bundle-scripts", "emit-manifest"},
			Weight:    1,
			Action:    func(ctx context.Context) error { return e.emitHTML(ctx) },
		},
		{
			ID:        "save-snapshot",
			DependsOn: []string{"bundle-scripts"},
			Weight:    1,
			Action:    func(ctx context.Context) error { return e.saveSnapshot(ctx, state) },
		},
	}

	for _, task := range tasks {
		if err := pipe.Add(task); err != nil {
			return nil, err
		}
	}

	report, err := pipe.Execute(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:          runID,
		Report:         report,
		Pack:           state.pack,
		SkippedSprites: state.skipped,
		BundleReused:   state.bundleReused,
		Success:        report.Success,
		Duration:       time.Since(started),
	}

	e.sink.NotifyExportComplete(e.cfg.ProjectName, result.Success, result.Duration)
	return result, nil
}

// Stage actions

func (e *Exporter) prepareOutput(ctx context.Context) error {
	for _, dir := range []string{
		e.cfg.OutputDir,
		filepath.Join(e.cfg.OutputDir, "atlas"),
		filepath.Join(e.cfg.OutputDir, "scripts"),
		filepath.Join(e.cfg.OutputDir, "assets"),
	} {
		if err := e.store.CreateDirectory(dir); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	return nil
}

func (e *Exporter) collectSprites(ctx context.Context, state *run) error {
	sprites, err := e.sprites.Sprites(ctx)
	if err != nil {
		return err
	}
	state.sprites = sprites
	e.logger.Debug("Collected sprites", logger.WithField("count", len(sprites)))
	return nil
}

func (e *Exporter) packAtlas(ctx context.Context, state *run) error {
	rects := make([]packer.Rect, len(state.sprites))
	for i, s := range state.sprites {
		rects[i] = packer.Rect{Width: s.Width, Height: s.Height, ID: s.ID}
	}

	result := packer.PackAll(rects, e.cfg.Atlas.PageWidth, e.cfg.Atlas.PageHeight, e.cfg.Atlas.GetPadding())
	state.pack = result
	state.skipped = result.Skipped(rects)

	for _, id := range state.skipped {
		e.logger.Warn("Sprite exceeds page size, skipped",
			logger.WithField("sprite", id),
			logger.WithField("page", fmt.Sprintf("%dx%d", e.cfg.Atlas.PageWidth, e.cfg.Atlas.PageHeight)))
	}

	e.logger.Debug("Packed atlas",
		logger.WithField("pages", len(result.Pages)),
		logger.WithField("placed", len(result.Index)))
	return nil
}

func (e *Exporter) diffScripts(ctx context.Context, state *run) error {
	files, err := e.scriptInputs()
	if err != nil {
		return err
	}
	state.scriptFiles = files

	state.previous = e.cache.LoadSnapshot(scriptScope)
	changes, err := e.cache.Diff(files, state.previous)
	if err != nil {
		return err
	}
	state.changes = changes

	e.logger.Debug("Script diff",
		logger.WithField("added", len(changes.Added)),
		logger.WithField("modified", len(changes.Modified)),
		logger.WithField("removed", len(changes.Removed)),
		logger.WithField("unchanged", len(changes.Unchanged)))
	return nil
}

func (e *Exporter) bundleScripts(ctx context.Context, state *run) error {
	if e.cfg.Bundle == nil {
		e.logger.Debug("No bundle configured, skipping script bundling")
		return nil
	}

	outPath := filepath.Join(e.cfg.OutputDir, "scripts", e.cfg.Bundle.Output)

	// The previous bundle is reusable when no tracked input changed and
	// the output from the last run is still present.
	if state.previous != nil && state.previous.ExtraPayloadDigest != "" &&
		!state.changes.HasChanges() && e.store.Exists(outPath) {
		state.bundleReused = true
		e.logger.Info("Scripts unchanged, reusing previous bundle")
		return nil
	}

	data, err := e.bundler.Bundle(ctx, e.cfg.Bundle.Entry)
	if err != nil {
		return fmt.Errorf("script bundling failed: %w", err)
	}
	if err := e.store.WriteFile(outPath, data); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	state.bundle = data
	return nil
}

func (e *Exporter) copyAssets(ctx context.Context, runner *batch.Runner) error {
	if !e.store.Exists(e.cfg.AssetsDir) {
		e.logger.Warn("No assets directory found", logger.WithField("dir", e.cfg.AssetsDir))
		return nil
	}

	var jobs []batch.Job
	err := e.store.Walk(e.cfg.AssetsDir, func(p string, isDir bool) error {
		if isDir || strings.EqualFold(filepath.Ext(p), ".png") {
			// Sprites travel inside atlas pages, not as loose files.
			return nil
		}
		rel, err := filepath.Rel(e.cfg.AssetsDir, p)
		if err != nil {
			return err
		}
		src := p
		dst := filepath.Join(e.cfg.OutputDir, "assets", rel)
		jobs = append(jobs, batch.Job{
			ID: filepath.ToSlash(rel),
			Action: func(ctx context.Context) error {
				return e.store.CopyFile(src, dst)
			},
		})
		return nil
	})
	if err != nil {
		return err
	}

	report := runner.Run(ctx, jobs, e.cfg.GetConcurrency())
	if !report.Success {
		if report.Aborted {
			return fmt.Errorf("asset copy aborted after %d of %d files", len(report.Results), len(jobs))
		}
		return fmt.Errorf("asset copy failed for %d of %d files", report.Failures, len(jobs))
	}

	e.logger.Debug("Copied assets",
		logger.WithField("files", report.Successes),
		logger.WithField("duration", report.Duration))
	return nil
}

// copySDK ships the engine runtime next to the project bundle. Projects
// without an SDK directory skip this stage silently.
func (e *Exporter) copySDK(ctx context.Context, runner *batch.Runner) error {
	if e.cfg.SDKDir == "" {
		return nil
	}
	if !e.store.Exists(e.cfg.SDKDir) {
		e.logger.Warn("SDK directory not found", logger.WithField("dir", e.cfg.SDKDir))
		return nil
	}

	var jobs []batch.Job
	err := e.store.Walk(e.cfg.SDKDir, func(p string, isDir bool) error {
		if isDir {
			return nil
		}
		rel, err := filepath.Rel(e.cfg.SDKDir, p)
		if err != nil {
			return err
		}
		src := p
		dst := filepath.Join(e.cfg.OutputDir, "scripts", rel)
		jobs = append(jobs, batch.Job{
			ID: "sdk/" + filepath.ToSlash(rel),
			Action: func(ctx context.Context) error {
				return e.store.CopyFile(src, dst)
			},
		})
		return nil
	})
	if err != nil {
		return err
	}

	report := runner.Run(ctx, jobs, e.cfg.GetConcurrency())
	if !report.Success {
		if report.Aborted {
			return fmt.Errorf("SDK copy aborted after %d of %d files", len(report.Results), len(jobs))
		}
		return fmt.Errorf("SDK copy failed for %d of %d files", report.Failures, len(jobs))
	}

	e.logger.Debug("Copied SDK runtime", logger.WithField("files", report.Successes))
	return nil
}

func (e *Exporter) emitManifest(ctx context.Context, state *run) error {
	manifest := buildManifest(e.cfg.ProjectName, state.pack)
	data, err := encodeManifest(manifest)
	if err != nil {
		return err
	}
	return e.store.WriteFile(filepath.Join(e.cfg.OutputDir, "atlas.json"), data)
}

func (e *Exporter) emitHTML(ctx context.Context) error {
	bundleName := defaultBundleName
	if e.cfg.Bundle != nil {
		bundleName = e.cfg.Bundle.Output
	}

	data, err := renderIndexHTML(e.cfg.ProjectName, bundleName)
	if err != nil {
		return err
	}
	return e.store.WriteFile(filepath.Join(e.cfg.OutputDir, "index.html"), data)
}

func (e *Exporter) saveSnapshot(ctx context.Context, state *run) error {
	snapshot, err := e.cache.BuildSnapshot(scriptScope, state.scriptFiles, state.bundle)
	if err != nil {
		return err
	}
	if state.bundleReused && state.previous != nil {
		snapshot.ExtraPayloadDigest = state.previous.ExtraPayloadDigest
	}
	return e.cache.SaveSnapshot(snapshot)
}

// scriptInputs collects the files whose bytes feed the script cache, in
// walk order.
func (e *Exporter) scriptInputs() ([]string, error) {
	if e.cfg.ScriptsDir == "" || !e.store.Exists(e.cfg.ScriptsDir) {
		return nil, nil
	}

	var files []string
	err := e.store.Walk(e.cfg.ScriptsDir, func(p string, isDir bool) error {
		if isDir {
			return nil
		}
		if scriptExtensions[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
