package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFile is written inside every committed index.
const ManifestFile = "buscador_build.json"

// Manifest describes a committed build.
type Manifest struct {
	BuildID       string    `json:"build_id"`
	CreatedAt     time.Time `json:"created_at"`
	IndexedCount  int       `json:"indexed_count"`
	DocumentCount int       `json:"document_count"`
	DatabaseCount int       `json:"database_count"`
	Skipped       int       `json:"skipped"`
	DocumentsDir  string    `json:"documents_dir"`
	Database      string    `json:"database,omitempty"`
}

// ReadManifest loads the manifest of the index at indexDir.
// A missing index is reported with os.ErrNotExist in the chain.
func ReadManifest(indexDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid build manifest: %w", err)
	}
	return &m, nil
}

func writeManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}
