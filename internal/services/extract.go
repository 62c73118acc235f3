package services

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/cardledger/mtg-tracker/internal/models"
)

// PriceSelector addresses one price series inside an AllPrices payload:
// market -> provider -> price type.
type PriceSelector struct {
	Market    string
	Provider  string
	PriceType string
}

// resolveSeriesNode walks the selector path through a payload and returns the
// price-type node, which maps either finish name -> date series or, in the
// flat form, date -> price. Absent or malformed paths return ok=false.
func resolveSeriesNode(payload json.RawMessage, selector PriceSelector) (map[string]json.RawMessage, bool) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, false
	}

	node := root
	for _, step := range []string{selector.Market, selector.Provider, selector.PriceType} {
		raw, ok := node[step]
		if !ok {
			return nil, false
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(raw, &next); err != nil {
			return nil, false
		}
		node = next
	}
	return node, true
}

// resolveFinishSeries returns the date -> raw price series for a finish.
// A series is normally nested under the finish name, but the default finish
// is sometimes stored flat with date keys directly under the price type.
func resolveFinishSeries(node map[string]json.RawMessage, finish models.Finish) (map[string]json.RawMessage, bool) {
	if raw, ok := node[string(finish)]; ok {
		var series map[string]json.RawMessage
		if err := json.Unmarshal(raw, &series); err == nil {
			return series, true
		}
		return nil, false
	}

	if finish == models.FinishNormal {
		for key := range node {
			if looksLikeDate(key) {
				return node, true
			}
		}
	}
	return nil, false
}

// ExtractSeedPrices streams AllPrices and emits long-form rows for the mapped
// keys within the [today-(days-1), today] window. Entries whose UUID is not a
// target are skipped without decoding; traversal stops once every target UUID
// has been seen.
func ExtractSeedPrices(allpricesPath string, uuidToKeys map[string][]models.CardKey, selector PriceSelector, today time.Time, days int) ([]models.PriceRow, error) {
	if len(uuidToKeys) == 0 {
		return nil, nil
	}

	minDate := today.AddDate(0, 0, -(days - 1))
	found := make(map[string]struct{}, len(uuidToKeys))
	var rows []models.PriceRow

	err := iterDataEntries(allpricesPath, func(uuid string, payload json.RawMessage) (bool, error) {
		keys, wanted := uuidToKeys[uuid]
		if !wanted {
			return false, nil
		}
		found[uuid] = struct{}{}

		node, ok := resolveSeriesNode(payload, selector)
		if !ok {
			return len(found) == len(uuidToKeys), nil
		}

		for _, key := range keys {
			series, ok := resolveFinishSeries(node, key.Finish)
			if !ok {
				continue
			}
			for dateStr, raw := range series {
				day, err := time.Parse(models.DateLayout, dateStr)
				if err != nil || day.Before(minDate) || day.After(today) {
					continue
				}
				price, ok := coercePrice(raw)
				if !ok {
					continue
				}
				rows = append(rows, models.PriceRow{
					Date:        dateStr,
					ScryfallID:  key.ScryfallID,
					Finish:      key.Finish,
					MTGJSONUUID: uuid,
					Price:       price,
				})
			}
		}

		return len(found) == len(uuidToKeys), nil
	})
	if err != nil {
		return nil, err
	}

	models.SortPriceRows(rows)
	return models.DedupeByDateKey(rows), nil
}

// ExtractTodayPrices streams an AllPricesToday dump and emits rows for the
// single target date. Entries are matched by the scryfall id carried in the
// payload, then fanned out to every finish the collection owns for that id.
func ExtractTodayPrices(allpricesTodayPath string, sidToFinishes map[string][]models.Finish, selector PriceSelector, dateStr string) ([]models.PriceRow, error) {
	if len(sidToFinishes) == 0 {
		return nil, nil
	}

	var rows []models.PriceRow

	err := iterDataEntries(allpricesTodayPath, func(uuid string, payload json.RawMessage) (bool, error) {
		node, ok := resolveSeriesNode(payload, selector)
		if !ok {
			return false, nil
		}

		var ids identifierPayload
		if err := json.Unmarshal(payload, &ids); err != nil {
			return false, nil
		}

		candidates := ids.candidates()
		if len(candidates) == 0 {
			return false, nil
		}
		scryfallID := candidates[0]
		if _, ok := sidToFinishes[scryfallID]; !ok {
			return false, nil
		}

		for _, finish := range sidToFinishes[scryfallID] {
			series, ok := resolveFinishSeries(node, finish)
			if !ok {
				continue
			}
			raw, ok := series[dateStr]
			if !ok {
				continue
			}
			price, ok := coercePrice(raw)
			if !ok {
				continue
			}
			rows = append(rows, models.PriceRow{
				Date:        dateStr,
				ScryfallID:  scryfallID,
				Finish:      finish,
				MTGJSONUUID: uuid,
				Price:       price,
			})
		}

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return models.DedupeByDateKey(rows), nil
}
