// Package store persists parameter-search output using crash-safe JSON
// files, so a long grid or genetic search's ranked results survive process
// restarts and can be diffed or re-ranked later without re-running any
// backtests.
//
// Each search run is stored as a separate file: run_<runID>.json. Writes
// use atomic file replacement (write to .tmp, then rename) to prevent
// corruption from partial writes or crashes mid-save.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ctabacktest/internal/search"
)

// Store persists search results to JSON files in a designated directory.
// All operations are mutex-protected to prevent concurrent file corruption.
type Store struct {
	dir string     // directory containing run_*.json files
	mu  sync.Mutex // serializes all file operations
}

// Open creates a store backed by the given directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// SaveRun atomically persists one search run's ranked results.
// It writes to a .tmp file first, then renames over the target to ensure
// the file is never left in a partial state (crash-safe).
func (s *Store) SaveRun(runID string, results []search.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	path := s.runPath(runID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadRun restores one search run's results from disk.
// Returns nil, nil if no saved run exists under runID (fresh search).
func (s *Store) LoadRun(runID string) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.runPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read results: %w", err)
	}

	var results []search.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return results, nil
}

func (s *Store) runPath(runID string) string {
	return filepath.Join(s.dir, "run_"+runID+".json")
}
