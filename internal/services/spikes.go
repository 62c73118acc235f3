package services

import (
	"sort"
	"time"

	"github.com/cardledger/mtg-tracker/internal/models"
)

// SpikeParams are the detection thresholds for one daily run.
type SpikeParams struct {
	TodayDate    string
	Windows      []int
	PriceFloor   float64
	PctThreshold float64
	AbsMin       float64
	PctOverride  float64
}

// pivotEntry is one row of the wide key-by-date price table.
type pivotEntry struct {
	key    models.CardKey
	uuid   string
	prices map[string]float64
}

// DetectSpikes compares today's price to the price N days prior for each
// configured window and returns every qualifying (key, window) pair, sorted
// by (pct_change desc, abs_change desc).
//
// A candidate qualifies when both prices exist, past > 0, today is at or
// above the price floor, pct_change clears the threshold, and the guardrail
// holds: abs_change >= abs_min OR pct_change >= pct_override. The guardrail
// keeps trivial absolute moves on cheap cards out of the report unless the
// percentage move is extreme on its own.
func DetectSpikes(stateRows []models.PriceRow, qty map[models.CardKey]int, params SpikeParams) []models.SpikeRow {
	if len(stateRows) == 0 {
		return nil
	}

	pivot, haveTodayColumn := buildPivot(stateRows, params.TodayDate)
	if !haveTodayColumn {
		return nil
	}

	var detail []models.SpikeRow
	for _, window := range normalizeWindows(params.Windows) {
		pastDate, ok := dateMinusDays(params.TodayDate, window)
		if !ok {
			continue
		}
		if !pivotHasDate(pivot, pastDate) {
			// No data that far back yet; the window contributes nothing.
			continue
		}

		for _, entry := range pivot {
			todayPrice, haveToday := entry.prices[params.TodayDate]
			pastPrice, havePast := entry.prices[pastDate]
			if !haveToday || !havePast || pastPrice <= 0 {
				continue
			}
			if todayPrice < params.PriceFloor {
				continue
			}

			absChange := todayPrice - pastPrice
			pctChange := absChange / pastPrice
			if pctChange < params.PctThreshold {
				continue
			}
			if absChange < params.AbsMin && pctChange < params.PctOverride {
				continue
			}

			detail = append(detail, models.SpikeRow{
				ScryfallID:  entry.key.ScryfallID,
				Finish:      entry.key.Finish,
				MTGJSONUUID: entry.uuid,
				TodayDate:   params.TodayDate,
				TodayPrice:  todayPrice,
				WindowDays:  window,
				PastDate:    pastDate,
				PastPrice:   pastPrice,
				AbsChange:   absChange,
				PctChange:   pctChange,
			})
		}
	}

	attachQuantities(detail, qty)
	sortSpikes(detail)
	return detail
}

// BuildSummary collapses detail rows to one best record per card key: the
// row with the highest (pct_change, abs_change) pair across all qualifying
// windows. The surviving row's window becomes best_window_days in exports.
func BuildSummary(detail []models.SpikeRow) []models.SpikeRow {
	if len(detail) == 0 {
		return nil
	}

	best := make(map[models.CardKey]models.SpikeRow, len(detail))
	for _, row := range detail {
		current, exists := best[row.Key()]
		if !exists || spikeLess(current, row) {
			best[row.Key()] = row
		}
	}

	summary := make([]models.SpikeRow, 0, len(best))
	for _, row := range best {
		summary = append(summary, row)
	}
	sortSpikes(summary)
	return summary
}

// buildPivot widens state rows to one entry per (key, uuid) with a date ->
// price map. The last row in slice order wins per date, though duplicates
// should not survive the merge step.
func buildPivot(rows []models.PriceRow, todayDate string) ([]*pivotEntry, bool) {
	type pivotKey struct {
		key  models.CardKey
		uuid string
	}

	index := make(map[pivotKey]*pivotEntry)
	var ordered []*pivotEntry
	haveToday := false

	for _, row := range rows {
		pk := pivotKey{key: row.Key(), uuid: row.MTGJSONUUID}
		entry, ok := index[pk]
		if !ok {
			entry = &pivotEntry{key: pk.key, uuid: pk.uuid, prices: make(map[string]float64)}
			index[pk] = entry
			ordered = append(ordered, entry)
		}
		entry.prices[row.Date] = row.Price
		if row.Date == todayDate {
			haveToday = true
		}
	}

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.key.ScryfallID != b.key.ScryfallID {
			return a.key.ScryfallID < b.key.ScryfallID
		}
		if a.key.Finish != b.key.Finish {
			return a.key.Finish < b.key.Finish
		}
		return a.uuid < b.uuid
	})
	return ordered, haveToday
}

func pivotHasDate(pivot []*pivotEntry, date string) bool {
	for _, entry := range pivot {
		if _, ok := entry.prices[date]; ok {
			return true
		}
	}
	return false
}

// normalizeWindows collapses duplicates, drops non-positive values, and
// returns the windows in ascending order.
func normalizeWindows(windows []int) []int {
	set := make(map[int]struct{}, len(windows))
	for _, window := range windows {
		if window > 0 {
			set[window] = struct{}{}
		}
	}

	out := make([]int, 0, len(set))
	for window := range set {
		out = append(out, window)
	}
	sort.Ints(out)
	return out
}

func dateMinusDays(dateStr string, days int) (string, bool) {
	day, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return "", false
	}
	return day.AddDate(0, 0, -days).Format(models.DateLayout), true
}

// attachQuantities left-joins owned quantity by card key. Keys without
// quantity metadata keep a nil Qty: unknown, not zero.
func attachQuantities(rows []models.SpikeRow, qty map[models.CardKey]int) {
	for i := range rows {
		if quantity, ok := qty[rows[i].Key()]; ok {
			value := quantity
			rows[i].Qty = &value
		}
	}
}

// spikeLess reports whether a ranks below b: primary pct_change, then
// abs_change, both descending in the final ordering.
func spikeLess(a, b models.SpikeRow) bool {
	if a.PctChange != b.PctChange {
		return a.PctChange < b.PctChange
	}
	return a.AbsChange < b.AbsChange
}

// sortSpikes orders rows by (pct_change desc, abs_change desc), with key and
// window as deterministic tiebreaks.
func sortSpikes(rows []models.SpikeRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.PctChange != b.PctChange {
			return a.PctChange > b.PctChange
		}
		if a.AbsChange != b.AbsChange {
			return a.AbsChange > b.AbsChange
		}
		if a.ScryfallID != b.ScryfallID {
			return a.ScryfallID < b.ScryfallID
		}
		if a.Finish != b.Finish {
			return a.Finish < b.Finish
		}
		return a.WindowDays < b.WindowDays
	})
}
