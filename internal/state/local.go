package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/cardledger/mtg-tracker/internal/config"
	"github.com/cardledger/mtg-tracker/internal/models"
)

// LocalPathBackend persists the snapshot CSV and meta JSON on the local
// filesystem.
type LocalPathBackend struct {
	statePath string
	metaPath  string
}

// NewLocalPathBackend creates a filesystem-backed state backend.
func NewLocalPathBackend(cfg config.LocalPathConfig) *LocalPathBackend {
	return &LocalPathBackend{
		statePath: cfg.StatePath,
		metaPath:  cfg.MetaPath,
	}
}

// StatePath returns the snapshot path. The daily pipeline reads and writes
// this path directly when the local backend is active.
func (b *LocalPathBackend) StatePath() string {
	return b.statePath
}

// LoadState reads the snapshot CSV and, when present, the meta document.
func (b *LocalPathBackend) LoadState(_ context.Context) ([]models.PriceRow, *models.RunMeta, error) {
	if _, err := os.Stat(b.statePath); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, b.statePath)
	}
	rows, err := ReadSnapshot(b.statePath)
	if err != nil {
		return nil, nil, err
	}

	meta, err := readMetaFile(b.metaPath)
	if err != nil {
		return nil, nil, err
	}
	return rows, meta, nil
}

// SaveState writes the snapshot CSV and meta document.
func (b *LocalPathBackend) SaveState(_ context.Context, rows []models.PriceRow, meta *models.RunMeta) error {
	if err := WriteSnapshot(b.statePath, rows); err != nil {
		return err
	}
	if meta == nil {
		return nil
	}
	return writeMetaFile(b.metaPath, meta)
}

// ReadRunMeta reads a run meta document. A missing file is not an error;
// it returns a nil meta.
func ReadRunMeta(path string) (*models.RunMeta, error) {
	return readMetaFile(path)
}

// WriteRunMeta writes a run meta document as indented JSON.
func WriteRunMeta(path string, meta *models.RunMeta) error {
	return writeMetaFile(path, meta)
}

func readMetaFile(path string) (*models.RunMeta, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read meta %s: %w", path, err)
	}

	var meta models.RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse meta %s: %w", path, err)
	}
	return &meta, nil
}

func writeMetaFile(path string, meta *models.RunMeta) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create meta dir: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write meta %s: %w", path, err)
	}
	return nil
}
