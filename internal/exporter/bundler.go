package exporter

import (
	"context"
	"fmt"

	"github.com/atlasforge/atlasforge/pkg/filestore"
)

// Bundler compiles the project's script entry point into a single
// runnable bundle. Real projects plug in an external toolchain; the
// exporter only cares about the produced bytes.
type Bundler interface {
	Bundle(ctx context.Context, entry string) ([]byte, error)
}

// CopyBundler is the built-in bundler for projects whose entry script is
// already runnable: it passes the entry file through unchanged.
type CopyBundler struct {
	store filestore.FileStore
}

// NewCopyBundler creates a pass-through bundler
func NewCopyBundler(store filestore.FileStore) *CopyBundler {
	return &CopyBundler{store: store}
}

// Bundle reads the entry file and returns its bytes
func (b *CopyBundler) Bundle(ctx context.Context, entry string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := b.store.ReadFile(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle entry %s: %w", entry, err)
	}
	return data, nil
}
