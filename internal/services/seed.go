package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardledger/mtg-tracker/internal/models"
	"github.com/cardledger/mtg-tracker/internal/state"
)

const (
	seedLookbackDays  = 90
	keyExampleLimit   = 10
	seedFileName      = "seed_90d.csv"
	stateFileName     = "state.csv"
	seedMetaFileName  = "meta.json"
)

// SeedParams configures a one-time seed run against the bulk MTGJSON dumps.
type SeedParams struct {
	CollectionPath  string
	IdentifiersPath string
	AllPricesPath   string
	OutputDir       string
	Selector        PriceSelector
	StateDays       int
	Today           time.Time
}

// SeedResult reports the artifacts a seed run produced.
type SeedResult struct {
	SeedPath  string
	StatePath string
	MetaPath  string
	Meta      *models.RunMeta
}

// RunSeed bootstraps the rolling price state from the full AllPrices dump:
// map collection scryfall ids to MTGJSON uuids, extract the 90-day history
// for every owned (card, finish), then trim each key's series to the last
// StateDays observations to form the initial state window.
func RunSeed(params SeedParams) (*SeedResult, error) {
	started := time.Now()

	collection, err := LoadCollection(params.CollectionPath)
	if err != nil {
		return nil, err
	}
	keys := models.CollectionKeys(collection)
	if len(keys) == 0 {
		return nil, fmt.Errorf("collection %s has no usable rows", params.CollectionPath)
	}

	targetIDs := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		targetIDs[key.ScryfallID] = struct{}{}
	}
	logrus.Infof("Seeding state for %d collection keys (%d distinct cards)", len(keys), len(targetIDs))

	sidToUUID, err := BuildScryfallToUUIDMap(params.IdentifiersPath, targetIDs)
	if err != nil {
		return nil, err
	}

	mappedUUIDs := make([]string, 0, len(sidToUUID))
	for _, mtgjsonUUID := range sidToUUID {
		mappedUUIDs = append(mappedUUIDs, mtgjsonUUID)
	}
	if err := ValidateMappedUUIDs(params.AllPricesPath, mappedUUIDs); err != nil {
		return nil, err
	}

	uuidToKeys := make(map[string][]models.CardKey, len(sidToUUID))
	var missingMapping []models.CardKey
	for _, key := range keys {
		mtgjsonUUID, ok := sidToUUID[key.ScryfallID]
		if !ok {
			missingMapping = append(missingMapping, key)
			continue
		}
		uuidToKeys[mtgjsonUUID] = append(uuidToKeys[mtgjsonUUID], key)
	}
	if len(missingMapping) > 0 {
		logrus.Warnf("%d collection keys have no MTGJSON mapping, e.g. %v",
			len(missingMapping), formatKeyExamples(missingMapping))
	}

	seedRows, err := ExtractSeedPrices(params.AllPricesPath, uuidToKeys, params.Selector, params.Today, seedLookbackDays)
	if err != nil {
		return nil, err
	}

	priced := make(map[models.CardKey]struct{}, len(keys))
	for _, row := range seedRows {
		priced[row.Key()] = struct{}{}
	}
	var missingPrice []models.CardKey
	for _, key := range keys {
		if _, ok := sidToUUID[key.ScryfallID]; !ok {
			continue
		}
		if _, ok := priced[key]; !ok {
			missingPrice = append(missingPrice, key)
		}
	}
	if len(missingPrice) > 0 {
		logrus.Warnf("%d mapped keys had no %s/%s/%s prices in the lookback window, e.g. %v",
			len(missingPrice), params.Selector.Market, params.Selector.Provider, params.Selector.PriceType,
			formatKeyExamples(missingPrice))
	}

	stateRows := buildStateWindow(seedRows, params.StateDays)

	result := &SeedResult{
		SeedPath:  filepath.Join(params.OutputDir, seedFileName),
		StatePath: filepath.Join(params.OutputDir, stateFileName),
		MetaPath:  filepath.Join(params.OutputDir, seedMetaFileName),
	}
	if err := state.WriteSnapshot(result.SeedPath, seedRows); err != nil {
		return nil, err
	}
	if err := state.WriteSnapshot(result.StatePath, stateRows); err != nil {
		return nil, err
	}

	meta := &models.RunMeta{
		RunID:                 uuid.New().String(),
		RunDateUTC:            params.Today.UTC().Format(models.DateLayout),
		Provider:              params.Selector.Provider,
		PriceType:             params.Selector.PriceType,
		Market:                params.Selector.Market,
		StateDays:             params.StateDays,
		NumCollectionKeys:     len(keys),
		NumMappedKeys:         len(keys) - len(missingMapping),
		NumPricedKeys:         len(priced),
		SeedRows:              len(seedRows),
		StateRows:             len(stateRows),
		MissingPriceKeysCount: len(missingPrice),
		MissingMappingCount:   len(missingMapping),
		MissingKeyExamples: models.MissingKeyExamples{
			MissingMapping: formatKeyExamples(missingMapping),
			MissingPrice:   formatKeyExamples(missingPrice),
		},
	}
	if err := state.WriteRunMeta(result.MetaPath, meta); err != nil {
		return nil, err
	}
	result.Meta = meta

	logrus.Infof("Seed complete in %s: %d seed rows, %d state rows, %d/%d keys priced",
		time.Since(started).Round(time.Millisecond), len(seedRows), len(stateRows), len(priced), len(keys))
	return result, nil
}

// buildStateWindow keeps each (scryfall_id, finish) key's most recent
// stateDays observations. The tail is per key, not global: a card whose
// latest price is stale still contributes its full window.
func buildStateWindow(rows []models.PriceRow, stateDays int) []models.PriceRow {
	if stateDays <= 0 {
		return nil
	}

	byKey := make(map[models.CardKey][]models.PriceRow)
	for _, row := range rows {
		byKey[row.Key()] = append(byKey[row.Key()], row)
	}

	var window []models.PriceRow
	for _, keyRows := range byKey {
		sort.Slice(keyRows, func(i, j int) bool { return keyRows[i].Date < keyRows[j].Date })
		if len(keyRows) > stateDays {
			keyRows = keyRows[len(keyRows)-stateDays:]
		}
		window = append(window, keyRows...)
	}

	models.SortPriceRows(window)
	return window
}

func formatKeyExamples(keys []models.CardKey) []string {
	examples := make([]string, 0, keyExampleLimit)
	for _, key := range keys {
		if len(examples) == keyExampleLimit {
			break
		}
		examples = append(examples, fmt.Sprintf("%s|%s", key.ScryfallID, key.Finish))
	}
	sort.Strings(examples)
	return examples
}
