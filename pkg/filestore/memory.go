package filestore

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryFileStore implements FileStore in memory. Useful for tests and
// short-lived preview exports that never hit disk.
type MemoryFileStore struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
	mtime map[string]time.Time
	clock func() time.Time
}

// NewMemoryFileStore creates an empty in-memory store
func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
		mtime: make(map[string]time.Time),
		clock: time.Now,
	}
}

func normalize(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "./")
}

// Exists checks if a path exists
func (m *MemoryFileStore) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = normalize(p)
	if _, ok := m.files[p]; ok {
		return true
	}
	return m.dirs[p]
}

// IsDirectory checks if a path is a directory
func (m *MemoryFileStore) IsDirectory(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirs[normalize(p)]
}

// ReadFile reads the entire file
func (m *MemoryFileStore) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[normalize(p)]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// WriteFile stores data, creating parent directories implicitly
func (m *MemoryFileStore) WriteFile(p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	m.addParents(p)
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[p] = stored
	m.mtime[p] = m.clock()
	return nil
}

// CopyFile copies a file from src to dst
func (m *MemoryFileStore) CopyFile(src, dst string) error {
	data, err := m.ReadFile(src)
	if err != nil {
		return err
	}
	return m.WriteFile(dst, data)
}

// RemoveFile removes a file
func (m *MemoryFileStore) RemoveFile(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	if _, ok := m.files[p]; !ok {
		return &os.PathError{Op: "remove", Path: p, Err: os.ErrNotExist}
	}
	delete(m.files, p)
	delete(m.mtime, p)
	return nil
}

// RemoveDirectory removes a directory and everything beneath it
func (m *MemoryFileStore) RemoveDirectory(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	prefix := p + "/"
	for f := range m.files {
		if f == p || strings.HasPrefix(f, prefix) {
			delete(m.files, f)
			delete(m.mtime, f)
		}
	}
	for d := range m.dirs {
		if d == p || strings.HasPrefix(d, prefix) {
			delete(m.dirs, d)
		}
	}
	return nil
}

// CreateDirectory creates a directory with all parents
func (m *MemoryFileStore) CreateDirectory(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	m.addParents(p + "/x")
	m.dirs[p] = true
	return nil
}

// ListEntries lists the immediate members of a directory
func (m *MemoryFileStore) ListEntries(dir string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dir = normalize(dir)
	if !m.dirs[dir] {
		return nil, &os.PathError{Op: "open", Path: dir, Err: os.ErrNotExist}
	}

	seen := make(map[string]bool)
	var entries []Entry

	collect := func(p string, isDir bool) {
		if !strings.HasPrefix(p, dir+"/") {
			return
		}
		rest := strings.TrimPrefix(p, dir+"/")
		name := rest
		memberIsDir := isDir
		if i := strings.Index(rest, "/"); i >= 0 {
			name = rest[:i]
			memberIsDir = true
		}
		if seen[name] {
			return
		}
		seen[name] = true
		entries = append(entries, Entry{Name: name, IsDirectory: memberIsDir})
	}

	for f := range m.files {
		collect(f, false)
	}
	for d := range m.dirs {
		collect(d, true)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Stat returns size and modification time for a file
func (m *MemoryFileStore) Stat(p string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = normalize(p)
	data, ok := m.files[p]
	if !ok {
		return FileInfo{}, &os.PathError{Op: "stat", Path: p, Err: os.ErrNotExist}
	}
	return FileInfo{Size: int64(len(data)), ModifiedTime: m.mtime[p]}, nil
}

// Walk visits every path under root in lexical order
func (m *MemoryFileStore) Walk(root string, callback func(path string, isDir bool) error) error {
	m.mu.RLock()
	root = normalize(root)
	if !m.dirs[root] {
		m.mu.RUnlock()
		return fmt.Errorf("walk %s: %w", root, os.ErrNotExist)
	}

	type node struct {
		path  string
		isDir bool
	}
	var nodes []node
	nodes = append(nodes, node{root, true})
	prefix := root + "/"
	for d := range m.dirs {
		if strings.HasPrefix(d, prefix) {
			nodes = append(nodes, node{d, true})
		}
	}
	for f := range m.files {
		if strings.HasPrefix(f, prefix) {
			nodes = append(nodes, node{f, false})
		}
	}
	m.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].path < nodes[j].path })
	for _, n := range nodes {
		if err := callback(n.path, n.isDir); err != nil {
			return err
		}
	}
	return nil
}

// addParents records every ancestor directory of p. Caller holds the lock.
func (m *MemoryFileStore) addParents(p string) {
	dir := path.Dir(p)
	for dir != "." && dir != "/" && dir != "" {
		m.dirs[dir] = true
		dir = path.Dir(dir)
	}
}
