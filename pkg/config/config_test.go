package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atlasforge/atlasforge/pkg/config"
)

const jsonConfig = `{
  "version": "1.0",
  "projectName": "demo",
  "assetsDir": "assets",
  "scriptsDir": "src",
  "outputDir": "dist",
  "atlas": {"pageWidth": 1024, "pageHeight": 512, "padding": 3},
  "bundle": {"entry": "src/main.ts", "output": "main.js"}
}`

const yamlConfig = `version: "1.0"
projectName: demo
assetsDir: assets
scriptsDir: src
outputDir: dist
atlas:
  pageWidth: 1024
  pageHeight: 512
concurrency: 6
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_JSON(t *testing.T) {
	manager := config.NewManager()
	path := writeConfig(t, t.TempDir(), "atlasforge.config.json", jsonConfig)

	cfg, err := manager.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProjectName != "demo" {
		t.Errorf("projectName: got %q", cfg.ProjectName)
	}
	if cfg.Atlas.PageWidth != 1024 || cfg.Atlas.PageHeight != 512 {
		t.Errorf("atlas dimensions: got %dx%d", cfg.Atlas.PageWidth, cfg.Atlas.PageHeight)
	}
	if cfg.Atlas.GetPadding() != 3 {
		t.Errorf("padding: got %d, want 3", cfg.Atlas.GetPadding())
	}
	if cfg.Bundle == nil || cfg.Bundle.Entry != "src/main.ts" {
		t.Errorf("bundle: got %+v", cfg.Bundle)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	manager := config.NewManager()
	path := writeConfig(t, t.TempDir(), "atlasforge.config.yaml", yamlConfig)

	cfg, err := manager.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProjectName != "demo" {
		t.Errorf("projectName: got %q", cfg.ProjectName)
	}
	if cfg.GetConcurrency() != 6 {
		t.Errorf("concurrency: got %d, want 6", cfg.GetConcurrency())
	}
}

func TestLoadConfig_InvalidContent(t *testing.T) {
	manager := config.NewManager()
	path := writeConfig(t, t.TempDir(), "atlasforge.config.json", "{{{not parseable")

	if _, err := manager.LoadConfig(path); err == nil {
		t.Error("expected an error for unparseable content")
	}
}

func TestLoadConfig_FailsValidation(t *testing.T) {
	manager := config.NewManager()
	path := writeConfig(t, t.TempDir(), "atlasforge.config.json",
		`{"version": "3.0", "projectName": "demo"}`)

	if _, err := manager.LoadConfig(path); err == nil {
		t.Error("expected validation to reject an unsupported version")
	}
}

func TestFindConfig(t *testing.T) {
	manager := config.NewManager()
	dir := t.TempDir()

	if _, err := manager.FindConfig(dir); err == nil {
		t.Error("expected an error when no config exists")
	}

	want := writeConfig(t, dir, "atlasforge.config.yml", yamlConfig)
	got, err := manager.FindConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("found %q, want %q", got, want)
	}

	// JSON wins when both are present.
	want = writeConfig(t, dir, "atlasforge.config.json", jsonConfig)
	got, err = manager.FindConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("found %q, want %q", got, want)
	}
}

func TestSaveAndReloadDefaultConfig(t *testing.T) {
	manager := config.NewManager()
	dir := t.TempDir()
	path := filepath.Join(dir, "atlasforge.config.json")

	def := manager.GetDefaultConfig("fresh-project")
	if err := manager.ValidateConfig(def); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if err := manager.SaveConfig(path, def); err != nil {
		t.Fatal(err)
	}

	loaded, err := manager.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ProjectName != "fresh-project" {
		t.Errorf("projectName: got %q", loaded.ProjectName)
	}
	if loaded.Atlas.PageWidth != def.Atlas.PageWidth {
		t.Errorf("atlas width changed across save/load")
	}
}

func TestSaveConfig_RejectsInvalid(t *testing.T) {
	manager := config.NewManager()
	path := filepath.Join(t.TempDir(), "atlasforge.config.json")

	bad := manager.GetDefaultConfig("demo")
	bad.OutputDir = ""
	if err := manager.SaveConfig(path, bad); err == nil {
		t.Error("expected save to reject an invalid config")
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("invalid config should not be written")
	}
}
