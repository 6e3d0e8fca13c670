package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atlasforge/atlasforge/pkg/types"
)

func withProjectRoot(t *testing.T, root string) {
	t.Helper()
	prevRoot, prevCfg := projectRoot, cfgFile
	projectRoot, cfgFile = root, ""
	t.Cleanup(func() {
		projectRoot, cfgFile = prevRoot, prevCfg
	})
}

func TestAnchorPath(t *testing.T) {
	withProjectRoot(t, "/work/project")

	if got := anchorPath("assets"); got != filepath.Join("/work/project", "assets") {
		t.Errorf("relative path: got %q", got)
	}
	if got := anchorPath("/abs/assets"); got != "/abs/assets" {
		t.Errorf("absolute path must not be re-anchored, got %q", got)
	}
	if got := anchorPath(""); got != "" {
		t.Errorf("empty path must stay empty, got %q", got)
	}
}

func TestLoadProjectConfig_AnchorsDirectories(t *testing.T) {
	dir := t.TempDir()
	withProjectRoot(t, dir)

	content := `{
  "version": "1.0",
  "projectName": "demo",
  "assetsDir": "assets",
  "scriptsDir": "src",
  "outputDir": "dist",
  "atlas": {"pageWidth": 512, "pageHeight": 512},
  "bundle": {"entry": "src/main.ts", "output": "main.js"}
}`
	path := filepath.Join(dir, "atlasforge.config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadProjectConfig()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "assets"); cfg.AssetsDir != want {
		t.Errorf("assetsDir: got %q, want %q", cfg.AssetsDir, want)
	}
	if want := filepath.Join(dir, "dist"); cfg.OutputDir != want {
		t.Errorf("outputDir: got %q, want %q", cfg.OutputDir, want)
	}
	if want := filepath.Join(dir, "src", "main.ts"); cfg.Bundle.Entry != want {
		t.Errorf("bundle entry: got %q, want %q", cfg.Bundle.Entry, want)
	}
}

func TestLoadProjectConfig_MissingConfig(t *testing.T) {
	withProjectRoot(t, t.TempDir())

	if _, err := loadProjectConfig(); err == nil {
		t.Error("expected an error when no config file exists")
	}
}

func TestIsExcluded(t *testing.T) {
	cfg := &types.ExportConfig{
		OutputDir: "/proj/dist",
		Watch:     &types.WatchConfig{Exclusions: []string{"node_modules"}},
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/proj/dist/index.html", true},
		{"/proj/.atlasforge/cache/scripts.json", true},
		{"/proj/src/node_modules/dep/index.js", true},
		{"/proj/src/main.ts", false},
		{"/proj/assets/hero.png", false},
	}
	for _, tt := range tests {
		if got := isExcluded(tt.path, cfg); got != tt.want {
			t.Errorf("isExcluded(%q): got %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestInitializeRootCommand(t *testing.T) {
	initializeRootCommand()

	wantCommands := []string{"export", "watch", "clean", "validate", "init", "version"}
	for _, name := range wantCommands {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}
