package state

import (
	"context"
	"fmt"

	"github.com/cardledger/mtg-tracker/internal/config"
	"github.com/cardledger/mtg-tracker/internal/models"
)

// Backend persists the rolling-state snapshot and its run metadata between
// runs. Implementations must treat SaveState as whole-snapshot replacement;
// there is no per-row mutation.
type Backend interface {
	// LoadState returns the persisted snapshot rows and the last run's
	// metadata. Meta is nil when none has been recorded yet. A missing
	// snapshot is reported as ErrSnapshotNotFound.
	LoadState(ctx context.Context) ([]models.PriceRow, *models.RunMeta, error)

	// SaveState replaces the persisted snapshot and metadata.
	SaveState(ctx context.Context, rows []models.PriceRow, meta *models.RunMeta) error
}

// NewBackend builds the configured backend.
func NewBackend(cfg config.StateBackendConfig) (Backend, error) {
	switch cfg.Kind {
	case "local_path":
		return NewLocalPathBackend(cfg.LocalPath), nil
	case "sqlite":
		return NewSQLiteBackend(cfg.SQLite)
	case "github_release":
		return NewGitHubReleaseBackend(cfg.GitHubRelease)
	default:
		return nil, fmt.Errorf("unknown state backend: %q", cfg.Kind)
	}
}
