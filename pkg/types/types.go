// Package types provides core types and configurations for Atlasforge
package types

import (
	"fmt"
)

// ProjectType represents different project ecosystems
type ProjectType string

const (
	ProjectTypeWeb     ProjectType = "web"
	ProjectTypeDesktop ProjectType = "desktop"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ExportStatus represents the current state of an export run
type ExportStatus string

const (
	ExportStatusIdle      ExportStatus = "idle"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
	ExportStatusAborted   ExportStatus = "aborted"
)

// AtlasConfig controls texture sheet packing
type AtlasConfig struct {
	PageWidth  int `json:"pageWidth" yaml:"pageWidth"`
	PageHeight int `json:"pageHeight" yaml:"pageHeight"`
	Padding    int `json:"padding,omitempty" yaml:"padding,omitempty"`
}

// BundleConfig controls script bundling
type BundleConfig struct {
	Entry  string `json:"entry" yaml:"entry"`
	Output string `json:"output" yaml:"output"`
}

// NotificationConfig controls desktop notifications
type NotificationConfig struct {
	Enabled      *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	SuccessSound string `json:"successSound,omitempty" yaml:"successSound,omitempty"`
	FailureSound string `json:"failureSound,omitempty" yaml:"failureSound,omitempty"`
}

// WatchConfig controls the watch command
type WatchConfig struct {
	SettlingDelay *int     `json:"settlingDelay,omitempty" yaml:"settlingDelay,omitempty"`
	Exclusions    []string `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level LogLevel `json:"level,omitempty" yaml:"level,omitempty"`
	File  string   `json:"file,omitempty" yaml:"file,omitempty"`
}

// ExportConfig is the root project configuration
type ExportConfig struct {
	Version       string              `json:"version" yaml:"version"`
	ProjectName   string              `json:"projectName" yaml:"projectName"`
	ProjectType   ProjectType         `json:"projectType,omitempty" yaml:"projectType,omitempty"`
	AssetsDir     string              `json:"assetsDir" yaml:"assetsDir"`
	ScriptsDir    string              `json:"scriptsDir" yaml:"scriptsDir"`
	SDKDir        string              `json:"sdkDir,omitempty" yaml:"sdkDir,omitempty"`
	OutputDir     string              `json:"outputDir" yaml:"outputDir"`
	Atlas         AtlasConfig         `json:"atlas" yaml:"atlas"`
	Bundle        *BundleConfig       `json:"bundle,omitempty" yaml:"bundle,omitempty"`
	Concurrency   int                 `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Notifications *NotificationConfig `json:"notifications,omitempty" yaml:"notifications,omitempty"`
	Watch         *WatchConfig        `json:"watch,omitempty" yaml:"watch,omitempty"`
	Logging       *LoggingConfig      `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// DefaultAtlasPadding is the inter-sprite margin applied to each dimension
// before a sprite is fitted into a free region.
const DefaultAtlasPadding = 2

// DefaultConcurrency bounds the asset copy batch when the config does not
// set an explicit limit.
const DefaultConcurrency = 4

// GetPadding returns the configured padding or the default
func (a *AtlasConfig) GetPadding() int {
	if a.Padding > 0 {
		return a.Padding
	}
	return DefaultAtlasPadding
}

// GetConcurrency returns the configured concurrency or the default
func (c *ExportConfig) GetConcurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return DefaultConcurrency
}

// GetSettlingDelay returns the watch settling delay in milliseconds
func (w *WatchConfig) GetSettlingDelay() int {
	if w != nil && w.SettlingDelay != nil {
		return *w.SettlingDelay
	}
	return 500
}

// NotificationsEnabled reports whether desktop notifications are on
func (c *ExportConfig) NotificationsEnabled() bool {
	if c.Notifications == nil || c.Notifications.Enabled == nil {
		return true
	}
	return *c.Notifications.Enabled
}

// Validate checks structural invariants of the configuration
func (c *ExportConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported config version: %s", c.Version)
	}
	if c.ProjectName == "" {
		return fmt.Errorf("projectName is required")
	}
	if c.AssetsDir == "" {
		return fmt.Errorf("assetsDir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("outputDir is required")
	}
	if c.Atlas.PageWidth <= 0 || c.Atlas.PageHeight <= 0 {
		return fmt.Errorf("atlas page dimensions must be positive, got %dx%d",
			c.Atlas.PageWidth, c.Atlas.PageHeight)
	}
	if c.Atlas.Padding < 0 {
		return fmt.Errorf("atlas padding must not be negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if c.Bundle != nil {
		if c.Bundle.Entry == "" || c.Bundle.Output == "" {
			return fmt.Errorf("bundle requires both entry and output")
		}
	}
	return nil
}
