// Package cache provides content-hash based change detection between
// packaging runs. Snapshots are persisted per scope through the file
// store; a snapshot that cannot be trusted is treated as absent, never
// partially trusted.
package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/atlasforge/atlasforge/pkg/filestore"
	"github.com/atlasforge/atlasforge/pkg/logger"
)

// SchemaVersion identifies the snapshot format. Snapshots written by a
// different version trigger a full rebuild classification.
const SchemaVersion = "1.0"

// Entry tracks one input file between runs
type Entry struct {
	Digest       string `json:"digest"`
	Size         int64  `json:"size"`
	ModifiedTime int64  `json:"modifiedTime"`
}

// Snapshot is the persisted state of one cache scope
type Snapshot struct {
	Version            string           `json:"version"`
	ScopeID            string           `json:"scopeId"`
	Timestamp          int64            `json:"timestamp"`
	Entries            map[string]Entry `json:"entries"`
	ExtraPayloadDigest string           `json:"extraPayloadDigest,omitempty"`
}

// ChangeSet classifies fresh identifiers against a previous snapshot.
// The four lists are disjoint; every fresh identifier lands in exactly
// one of Added, Modified, or Unchanged, and Removed holds the snapshot
// identifiers absent from the fresh list.
type ChangeSet struct {
	Added     []string
	Modified  []string
	Removed   []string
	Unchanged []string
}

// HasChanges reports whether anything differs from the previous snapshot
func (c *ChangeSet) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Modified) > 0 || len(c.Removed) > 0
}

// Manager loads, diffs, builds, and persists cache snapshots. Concurrent
// savers for the same scope id are the caller's responsibility to
// serialize; the manager provides no locking.
type Manager struct {
	store    filestore.FileStore
	digester Digester
	cacheDir string
	logger   logger.Logger
}

// NewManager creates a cache manager rooted at cacheDir
func NewManager(store filestore.FileStore, digester Digester, cacheDir string, log logger.Logger) *Manager {
	return &Manager{
		store:    store,
		digester: digester,
		cacheDir: cacheDir,
		logger:   log,
	}
}

// LoadSnapshot returns the persisted snapshot for a scope, or nil when
// the snapshot is missing, unreadable, or written by a different schema
// version. Absence is an expected case, not an error.
func (m *Manager) LoadSnapshot(scopeID string) *Snapshot {
	path := m.snapshotPath(scopeID)

	data, err := m.store.ReadFile(path)
	if err != nil {
		return nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		if m.logger != nil {
			m.logger.Warn("Discarding corrupt cache snapshot",
				logger.WithField("scope", scopeID),
				logger.WithField("error", err))
		}
		return nil
	}

	if snapshot.Version != SchemaVersion {
		if m.logger != nil {
			m.logger.Debug("Discarding cache snapshot with stale schema",
				logger.WithField("scope", scopeID),
				logger.WithField("version", snapshot.Version))
		}
		return nil
	}

	return &snapshot
}

// Diff classifies each fresh identifier against the previous snapshot.
// A nil previous snapshot classifies every identifier as added.
func (m *Manager) Diff(freshIDs []string, previous *Snapshot) (*ChangeSet, error) {
	changes := &ChangeSet{}

	if previous == nil {
		changes.Added = append(changes.Added, freshIDs...)
		return changes, nil
	}

	fresh := make(map[string]bool, len(freshIDs))
	for _, id := range freshIDs {
		fresh[id] = true

		prev, existed := previous.Entries[id]
		if !existed {
			changes.Added = append(changes.Added, id)
			continue
		}

		data, err := m.store.ReadFile(id)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s for diff: %w", id, err)
		}
		if m.digester.Digest(data) != prev.Digest {
			changes.Modified = append(changes.Modified, id)
		} else {
			changes.Unchanged = append(changes.Unchanged, id)
		}
	}

	for id := range previous.Entries {
		if !fresh[id] {
			changes.Removed = append(changes.Removed, id)
		}
	}

	return changes, nil
}

// BuildSnapshot computes a fresh entry per identifier. When extraPayload
// is non-nil its digest is stored alongside, so callers can short-circuit
// an expensive recompilation by comparing one field instead of re-hashing
// every dependency file.
func (m *Manager) BuildSnapshot(scopeID string, identifiers []string, extraPayload []byte) (*Snapshot, error) {
	snapshot := &Snapshot{
		Version:   SchemaVersion,
		ScopeID:   scopeID,
		Timestamp: time.Now().UnixMilli(),
		Entries:   make(map[string]Entry, len(identifiers)),
	}

	for _, id := range identifiers {
		data, err := m.store.ReadFile(id)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s for snapshot: %w", id, err)
		}

		entry := Entry{
			Digest: m.digester.Digest(data),
			Size:   int64(len(data)),
		}
		if info, err := m.store.Stat(id); err == nil {
			entry.Size = info.Size
			entry.ModifiedTime = info.ModifiedTime.UnixMilli()
		}
		snapshot.Entries[id] = entry
	}

	if extraPayload != nil {
		snapshot.ExtraPayloadDigest = m.digester.Digest(extraPayload)
	}

	return snapshot, nil
}

// SaveSnapshot persists a snapshot. The write is atomic from the caller's
// point of view: a partial write never yields a snapshot that LoadSnapshot
// accepts.
func (m *Manager) SaveSnapshot(snapshot *Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := m.snapshotPath(snapshot.ScopeID)
	if err := m.store.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if m.logger != nil {
		m.logger.Debug("Saved cache snapshot",
			logger.WithField("scope", snapshot.ScopeID),
			logger.WithField("entries", len(snapshot.Entries)))
	}
	return nil
}

// Invalidate removes the persisted snapshot for one scope. A missing
// snapshot is not an error.
func (m *Manager) Invalidate(scopeID string) error {
	path := m.snapshotPath(scopeID)
	if !m.store.Exists(path) {
		return nil
	}
	return m.store.RemoveFile(path)
}

func (m *Manager) snapshotPath(scopeID string) string {
	return filepath.Join(m.cacheDir, scopeID+".json")
}
