// Package config handles project configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atlasforge/atlasforge/pkg/types"
	"gopkg.in/yaml.v3"
)

// ConfigFileNames are the recognized config files, in search order
var ConfigFileNames = []string{
	"atlasforge.config.json",
	"atlasforge.config.yaml",
	"atlasforge.config.yml",
}

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads configuration from a file
func (m *Manager) LoadConfig(path string) (*types.ExportConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg types.ExportConfig

	// Try JSON first
	if err := json.Unmarshal(data, &cfg); err == nil {
		return m.validated(&cfg)
	}

	// Try YAML
	cfg = types.ExportConfig{}
	if err := yaml.Unmarshal(data, &cfg); err == nil {
		return m.validated(&cfg)
	}

	return nil, fmt.Errorf("failed to parse config as JSON or YAML")
}

// FindConfig locates the config file in a project root
func (m *Manager) FindConfig(projectRoot string) (string, error) {
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(projectRoot, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no config file found in %s (looked for %v)", projectRoot, ConfigFileNames)
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(cfg *types.ExportConfig) error {
	return cfg.Validate()
}

// SaveConfig writes a configuration as indented JSON
func (m *Manager) SaveConfig(path string, cfg *types.ExportConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetDefaultConfig returns a starter configuration for a project
func (m *Manager) GetDefaultConfig(projectName string) *types.ExportConfig {
	return &types.ExportConfig{
		Version:     "1.0",
		ProjectName: projectName,
		ProjectType: types.ProjectTypeWeb,
		AssetsDir:   "assets",
		ScriptsDir:  "src",
		OutputDir:   "dist",
		Atlas: types.AtlasConfig{
			PageWidth:  2048,
			PageHeight: 2048,
			Padding:    types.DefaultAtlasPadding,
		},
		Concurrency: types.DefaultConcurrency,
	}
}

func (m *Manager) validated(cfg *types.ExportConfig) (*types.ExportConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
