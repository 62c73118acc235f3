package state

import (
	"github.com/cardledger/mtg-tracker/internal/models"
)

// Merge concatenates prior and new observations, sorts by (scryfall_id,
// finish, date, mtgjson_uuid) for determinism, and deduplicates by
// (date, scryfall_id, finish) keeping the last row in sort order. New
// observations therefore win over prior ones sharing the same slot, and the
// UUID ordering is a stable tiebreak among duplicates.
func Merge(prior, incoming []models.PriceRow) []models.PriceRow {
	combined := make([]models.PriceRow, 0, len(prior)+len(incoming))
	combined = append(combined, prior...)
	combined = append(combined, incoming...)

	models.SortPriceRows(combined)
	return models.DedupeByDateKey(combined)
}

// Truncate keeps only rows on the keepDays most recent distinct calendar
// dates. It is a pure retention policy: no interpolation, no backfill.
func Truncate(rows []models.PriceRow, keepDays int) []models.PriceRow {
	if len(rows) == 0 || keepDays <= 0 {
		return nil
	}

	dates := models.DistinctDates(rows)
	if len(dates) > keepDays {
		dates = dates[len(dates)-keepDays:]
	}
	keep := make(map[string]struct{}, len(dates))
	for _, date := range dates {
		keep[date] = struct{}{}
	}

	out := make([]models.PriceRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := keep[row.Date]; ok {
			out = append(out, row)
		}
	}
	models.SortPriceRows(out)
	return out
}
