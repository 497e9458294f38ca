package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FilePersister implements Persister using a single local JSON file.
// This is suitable for single-instance deployments.
type FilePersister struct {
	mu       sync.Mutex
	filePath string
}

// NewFilePersister creates a file-backed persister.
// The filePath specifies where the snapshot file will be stored.
func NewFilePersister(filePath string) *FilePersister {
	return &FilePersister{filePath: filePath}
}

// Persist writes the snapshot to the local file.
// The write goes to a temp path first and is renamed into place, so a crash
// mid-write leaves either the old or the new file intact, never a truncated one.
func (p *FilePersister) Persist(snap *Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.filePath == "" {
		return nil
	}

	// Ensure directory exists
	dir := filepath.Dir(p.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Compact marshaling: entry payload bytes must survive a
	// persist/restore cycle unchanged.
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal cache snapshot: %w", err)
	}

	tmpFile := p.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpFile, p.filePath); err != nil {
		os.Remove(tmpFile) // Clean up temp file
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	return nil
}

// Restore reads the last persisted snapshot from the local file.
func (p *FilePersister) Restore() (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.filePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(p.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No snapshot file yet, not an error
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}

	return &snap, nil
}
