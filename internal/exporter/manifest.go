package exporter

import (
	"encoding/json"
	"fmt"

	"github.com/atlasforge/atlasforge/pkg/packer"
)

// ManifestFrame is one sprite's placement in the emitted manifest
type ManifestFrame struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ManifestPage is one texture sheet in the emitted manifest
type ManifestPage struct {
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Image  string          `json:"image"`
	Frames []ManifestFrame `json:"frames"`
}

// Manifest is the atlas description consumed by the runtime loader
type Manifest struct {
	Project string         `json:"project"`
	Pages   []ManifestPage `json:"pages"`
}

// buildManifest converts a pack result into the loader manifest. Page
// order and placement order are preserved.
func buildManifest(project string, result *packer.PackResult) *Manifest {
	manifest := &Manifest{
		Project: project,
		Pages:   make([]ManifestPage, len(result.Pages)),
	}

	for i, page := range result.Pages {
		frames := make([]ManifestFrame, len(page.Placements))
		for j, placement := range page.Placements {
			frames[j] = ManifestFrame{
				ID:     placement.ID,
				X:      placement.X,
				Y:      placement.Y,
				Width:  placement.Width,
				Height: placement.Height,
			}
		}
		manifest.Pages[i] = ManifestPage{
			Width:  page.Width,
			Height: page.Height,
			Image:  fmt.Sprintf("atlas/page-%d.png", i),
			Frames: frames,
		}
	}

	return manifest
}

// encodeManifest renders the manifest as indented JSON
func encodeManifest(m *Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal atlas manifest: %w", err)
	}
	return data, nil
}
