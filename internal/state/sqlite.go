package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/cardledger/mtg-tracker/internal/config"
	"github.com/cardledger/mtg-tracker/internal/database"
	"github.com/cardledger/mtg-tracker/internal/models"
)

// SQLiteBackend stores state rows and run metadata in a SQLite database.
type SQLiteBackend struct {
	db *gorm.DB
}

// NewSQLiteBackend opens (and migrates) the configured database.
func NewSQLiteBackend(cfg config.SQLiteConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite state backend requires a database path")
	}
	db, err := database.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite state backend: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// LoadState reads all state rows and the most recent run metadata.
func (b *SQLiteBackend) LoadState(ctx context.Context) ([]models.PriceRow, *models.RunMeta, error) {
	var records []models.StateRecord
	if err := b.db.WithContext(ctx).
		Order("scryfall_id, finish, date, mtgjson_uuid").
		Find(&records).Error; err != nil {
		return nil, nil, fmt.Errorf("load sqlite state: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: sqlite state table is empty", ErrSnapshotNotFound)
	}

	rows := make([]models.PriceRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.Row())
	}

	meta, err := b.latestMeta(ctx)
	if err != nil {
		return nil, nil, err
	}
	return rows, meta, nil
}

// SaveState replaces the state table contents and appends the run metadata.
func (b *SQLiteBackend) SaveState(ctx context.Context, rows []models.PriceRow, meta *models.RunMeta) error {
	records := make([]models.StateRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.NewStateRecord(row))
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.StateRecord{}).Error; err != nil {
			return fmt.Errorf("clear sqlite state: %w", err)
		}
		if len(records) > 0 {
			if err := tx.CreateInBatches(records, 500).Error; err != nil {
				return fmt.Errorf("insert sqlite state: %w", err)
			}
		}
		if meta != nil {
			encoded, err := json.Marshal(meta)
			if err != nil {
				return fmt.Errorf("encode run meta: %w", err)
			}
			record := models.RunRecord{RunID: meta.RunID, Meta: string(encoded)}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("insert run meta: %w", err)
			}
		}
		return nil
	})
}

func (b *SQLiteBackend) latestMeta(ctx context.Context) (*models.RunMeta, error) {
	var record models.RunRecord
	err := b.db.WithContext(ctx).Order("created_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load run meta: %w", err)
	}

	var meta models.RunMeta
	if err := json.Unmarshal([]byte(record.Meta), &meta); err != nil {
		return nil, fmt.Errorf("parse run meta: %w", err)
	}
	return &meta, nil
}
