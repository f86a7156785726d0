// Package store persists the application collections as one JSON document.
//
// The document replaces the browser storage the back office used to keep its
// trips, passengers, reservations, boarding points, sellers and counters in.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yotellevo/passenger-import/internal/types"
)

// Load reads the collections from path. A missing file yields empty
// collections.
func Load(path string) (*types.Collections, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &types.Collections{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	var c types.Collections
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse store %s: %w", path, err)
	}
	return &c, nil
}

// Save writes c to path. The file is replaced atomically: a crash leaves
// either the old or the new document, never half of one.
func Save(path string, c *types.Collections) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}
