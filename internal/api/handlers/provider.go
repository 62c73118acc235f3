package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cardledger/mtg-tracker/internal/models"
	"github.com/cardledger/mtg-tracker/internal/services"
	"github.com/cardledger/mtg-tracker/internal/state"
)

const cacheTTL = 5 * time.Minute

type cacheEntry struct {
	stateRows  []models.PriceRow
	meta       *models.RunMeta
	collection []models.CollectionRow
	loadedAt   time.Time
}

// DataProvider serves read-only dashboard queries over the rolling state
// and collection. Loads are cached briefly so a dashboard refresh storm
// does not hammer the state backend.
type DataProvider struct {
	backend        state.Backend
	collectionPath string
	reportsDir     string
	cache          *lru.Cache[string, cacheEntry]
}

func NewDataProvider(backend state.Backend, collectionPath, reportsDir string) (*DataProvider, error) {
	cache, err := lru.New[string, cacheEntry](8)
	if err != nil {
		return nil, fmt.Errorf("create provider cache: %w", err)
	}
	return &DataProvider{
		backend:        backend,
		collectionPath: collectionPath,
		reportsDir:     reportsDir,
		cache:          cache,
	}, nil
}

// ReportsDir returns the directory daily reports are written to.
func (p *DataProvider) ReportsDir() string {
	return p.reportsDir
}

// StateRows loads the rolling state and latest run meta. Local snapshots
// are keyed by path and mtime, so a rewritten file is picked up on the
// next request; remote backends fall back to the TTL.
func (p *DataProvider) StateRows(ctx context.Context) ([]models.PriceRow, *models.RunMeta, error) {
	key := "state"
	ttl := cacheTTL
	if local, ok := p.backend.(*state.LocalPathBackend); ok {
		if info, err := os.Stat(local.StatePath()); err == nil {
			key = fmt.Sprintf("state|%s|%d", local.StatePath(), info.ModTime().UnixNano())
			ttl = 0
		}
	}

	if entry, ok := p.cache.Get(key); ok && (ttl == 0 || time.Since(entry.loadedAt) < ttl) {
		return entry.stateRows, entry.meta, nil
	}

	rows, meta, err := p.backend.LoadState(ctx)
	if err != nil {
		return nil, nil, err
	}
	p.cache.Add(key, cacheEntry{stateRows: rows, meta: meta, loadedAt: time.Now()})
	return rows, meta, nil
}

// Collection loads the normalized collection CSV.
func (p *DataProvider) Collection() ([]models.CollectionRow, error) {
	if entry, ok := p.cache.Get("collection"); ok && time.Since(entry.loadedAt) < cacheTTL {
		return entry.collection, nil
	}

	rows, err := services.LoadCollection(p.collectionPath)
	if err != nil {
		return nil, err
	}
	p.cache.Add("collection", cacheEntry{collection: rows, loadedAt: time.Now()})
	return rows, nil
}

// Invalidate drops cached loads. The scheduler calls this after a daily run
// so the dashboard picks up the new state immediately.
func (p *DataProvider) Invalidate() {
	p.cache.Purge()
}
