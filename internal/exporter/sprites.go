package exporter

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"path"
	"path/filepath"
	"strings"

	"github.com/atlasforge/atlasforge/pkg/filestore"
	"github.com/atlasforge/atlasforge/pkg/logger"
)

// Sprite is one image the packer must place. Dimensions come from the
// image header; the exporter never decodes pixel data.
type Sprite struct {
	// ID is the sprite's identity in the atlas, the asset-relative path.
	ID string
	// Path is the full path in the file store.
	Path   string
	Width  int
	Height int
}

// SpriteSource supplies the images requiring packing. The default
// implementation scans the asset directory; editors with a live scene
// graph can inject their own.
type SpriteSource interface {
	Sprites(ctx context.Context) ([]Sprite, error)
}

// DirectorySpriteSource scans a directory tree for PNG sprites
type DirectorySpriteSource struct {
	store  filestore.FileStore
	dir    string
	logger logger.Logger
}

// NewDirectorySpriteSource creates a sprite source over an asset directory
func NewDirectorySpriteSource(store filestore.FileStore, dir string, log logger.Logger) *DirectorySpriteSource {
	return &DirectorySpriteSource{
		store:  store,
		dir:    dir,
		logger: log,
	}
}

// Sprites walks the asset directory and reads dimensions from each PNG
// header. Files that fail to parse are skipped with a warning rather
// than failing the export.
func (s *DirectorySpriteSource) Sprites(ctx context.Context) ([]Sprite, error) {
	var sprites []Sprite

	err := s.store.Walk(s.dir, func(p string, isDir bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if isDir || !strings.EqualFold(filepath.Ext(p), ".png") {
			return nil
		}

		data, err := s.store.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read sprite %s: %w", p, err)
		}

		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("Skipping unreadable PNG",
					logger.WithField("path", p),
					logger.WithField("error", err))
			}
			return nil
		}

		sprites = append(sprites, Sprite{
			ID:     spriteID(s.dir, p),
			Path:   p,
			Width:  cfg.Width,
			Height: cfg.Height,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sprites, nil
}

// spriteID derives the atlas identity from the asset-relative path,
// normalized to forward slashes.
func spriteID(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = p
	}
	return path.Clean(filepath.ToSlash(rel))
}
