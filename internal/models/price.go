package models

import (
	"sort"
)

// DateLayout is the calendar-date format used by MTGJSON price series and all
// persisted artifacts.
const DateLayout = "2006-01-02"

// StateColumns is the fixed column order of seed and rolling-state snapshots.
var StateColumns = []string{"date", "scryfall_id", "finish", "mtgjson_uuid", "price"}

// CardKey identifies a trackable printing+finish combination in the collection.
type CardKey struct {
	ScryfallID string
	Finish     Finish
}

// PriceRow is one dated price observation for a card key.
type PriceRow struct {
	Date        string
	ScryfallID  string
	Finish      Finish
	MTGJSONUUID string
	Price       float64
}

// Key returns the row's card key.
func (r PriceRow) Key() CardKey {
	return CardKey{ScryfallID: r.ScryfallID, Finish: r.Finish}
}

// dateKey identifies one observation slot: at most one price may exist per
// (date, scryfall_id, finish).
type dateKey struct {
	Date string
	Key  CardKey
}

// SortPriceRows orders rows by (scryfall_id, finish, date, mtgjson_uuid),
// the canonical snapshot order.
func SortPriceRows(rows []PriceRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ScryfallID != b.ScryfallID {
			return a.ScryfallID < b.ScryfallID
		}
		if a.Finish != b.Finish {
			return a.Finish < b.Finish
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.MTGJSONUUID < b.MTGJSONUUID
	})
}

// DedupeByDateKey keeps the last row in slice order for each
// (date, scryfall_id, finish) slot. Input order is preserved for survivors.
func DedupeByDateKey(rows []PriceRow) []PriceRow {
	seen := make(map[dateKey]int, len(rows))
	for i, row := range rows {
		seen[dateKey{Date: row.Date, Key: row.Key()}] = i
	}

	out := make([]PriceRow, 0, len(seen))
	for i, row := range rows {
		if seen[dateKey{Date: row.Date, Key: row.Key()}] == i {
			out = append(out, row)
		}
	}
	return out
}

// DistinctDates returns the sorted set of calendar dates present in rows.
func DistinctDates(rows []PriceRow) []string {
	set := make(map[string]struct{})
	for _, row := range rows {
		set[row.Date] = struct{}{}
	}

	dates := make([]string, 0, len(set))
	for date := range set {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
