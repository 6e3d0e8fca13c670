// Package filestore abstracts file access so the packaging core never
// touches a physical filesystem directly.
package filestore

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

// Entry describes one directory member
type Entry struct {
	Name        string
	IsDirectory bool
}

// FileInfo carries the metadata the incremental cache tracks per file
type FileInfo struct {
	Size         int64
	ModifiedTime time.Time
}

// FileStore provides file system operations for the packaging core.
// All implementations must make WriteFile atomic: a reader never observes
// a partially written file at the destination path.
type FileStore interface {
	Exists(path string) bool
	IsDirectory(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	CopyFile(src, dst string) error
	RemoveFile(path string) error
	RemoveDirectory(path string) error
	CreateDirectory(path string) error
	ListEntries(dir string) ([]Entry, error)
	Stat(path string) (FileInfo, error)
	Walk(root string, callback func(path string, isDir bool) error) error
}

// OSFileStore implements FileStore over the local filesystem
type OSFileStore struct{}

// NewOSFileStore creates a filesystem-backed store
func NewOSFileStore() *OSFileStore {
	return &OSFileStore{}
}

// Exists checks if a path exists
func (f *OSFileStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDirectory checks if a path is a directory
func (f *OSFileStore) IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// ReadFile reads the entire file
func (f *OSFileStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file atomically via a temp file rename
func (f *OSFileStore) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile) // Clean up
		return err
	}
	return nil
}

// CopyFile copies a file from src to dst
func (f *OSFileStore) CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destDir := filepath.Dir(dst)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	sourceInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.Chmod(dst, sourceInfo.Mode())
}

// RemoveFile removes a file
func (f *OSFileStore) RemoveFile(path string) error {
	return os.Remove(path)
}

// RemoveDirectory removes a directory and all contents
func (f *OSFileStore) RemoveDirectory(path string) error {
	return os.RemoveAll(path)
}

// CreateDirectory creates a directory with all parents
func (f *OSFileStore) CreateDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// ListEntries lists the members of a directory
func (f *OSFileStore) ListEntries(dir string) ([]Entry, error) {
	members, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		entries = append(entries, Entry{
			Name:        m.Name(),
			IsDirectory: m.IsDir(),
		})
	}
	return entries, nil
}

// Stat returns size and modification time for a file
func (f *OSFileStore) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Size:         info.Size(),
		ModifiedTime: info.ModTime(),
	}, nil
}

// Walk walks a directory tree
func (f *OSFileStore) Walk(root string, callback func(path string, isDir bool) error) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		return callback(path, info.IsDir())
	})
}
