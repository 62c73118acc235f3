package services

import (
	"sort"

	"github.com/cardledger/mtg-tracker/internal/metrics"
	"github.com/cardledger/mtg-tracker/internal/models"
)

// PricePoint is one key's most recent observation in the rolling state.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// ValuationRow joins a collection row with its latest observed price.
type ValuationRow struct {
	ScryfallID      string        `json:"scryfall_id"`
	Finish          models.Finish `json:"finish"`
	SetCode         string        `json:"set_code,omitempty"`
	CollectorNumber string        `json:"collector_number,omitempty"`
	Qty             int           `json:"qty"`
	LatestDate      string        `json:"latest_date,omitempty"`
	LatestPrice     *float64      `json:"latest_price,omitempty"`
	Value           *float64      `json:"value,omitempty"`
}

// Valuation is the collection priced at the latest observations.
type Valuation struct {
	AsOfDate   string         `json:"as_of_date"`
	TotalValue float64        `json:"total_value"`
	PricedKeys int            `json:"priced_keys"`
	TotalKeys  int            `json:"total_keys"`
	Rows       []ValuationRow `json:"rows"`
}

// MoverRow is one key's price change over a lookback window, computed from
// the rolling state rather than the spike thresholds.
type MoverRow struct {
	ScryfallID string        `json:"scryfall_id"`
	Finish     models.Finish `json:"finish"`
	FromDate   string        `json:"from_date"`
	FromPrice  float64       `json:"from_price"`
	ToDate     string        `json:"to_date"`
	ToPrice    float64       `json:"to_price"`
	AbsChange  float64       `json:"abs_change"`
	PctChange  float64       `json:"pct_change"`
}

// LatestPrices returns each key's most recent observation. Later rows win
// on date ties, matching the keep-last rule used everywhere else.
func LatestPrices(stateRows []models.PriceRow) map[models.CardKey]PricePoint {
	latest := make(map[models.CardKey]PricePoint)
	for _, row := range stateRows {
		key := row.Key()
		if prev, ok := latest[key]; ok && row.Date < prev.Date {
			continue
		}
		latest[key] = PricePoint{Date: row.Date, Price: row.Price}
	}
	return latest
}

// BuildValuation prices the collection at the latest state observations.
// Keys without any state price keep nil price and value and contribute
// nothing to the total.
func BuildValuation(collection []models.CollectionRow, stateRows []models.PriceRow) *Valuation {
	latest := LatestPrices(stateRows)
	dates := models.DistinctDates(stateRows)

	valuation := &Valuation{TotalKeys: len(collection)}
	if len(dates) > 0 {
		valuation.AsOfDate = dates[len(dates)-1]
	}

	for _, card := range collection {
		row := ValuationRow{
			ScryfallID:      card.ScryfallID,
			Finish:          card.Finish,
			SetCode:         card.SetCode,
			CollectorNumber: card.CollectorNumber,
			Qty:             card.Qty,
		}
		if point, ok := latest[models.CardKey{ScryfallID: card.ScryfallID, Finish: card.Finish}]; ok {
			price := point.Price
			value := price * float64(card.Qty)
			row.LatestDate = point.Date
			row.LatestPrice = &price
			row.Value = &value
			valuation.TotalValue += value
			valuation.PricedKeys++
		}
		valuation.Rows = append(valuation.Rows, row)
	}

	sort.Slice(valuation.Rows, func(i, j int) bool {
		vi, vj := 0.0, 0.0
		if valuation.Rows[i].Value != nil {
			vi = *valuation.Rows[i].Value
		}
		if valuation.Rows[j].Value != nil {
			vj = *valuation.Rows[j].Value
		}
		if vi != vj {
			return vi > vj
		}
		if valuation.Rows[i].ScryfallID != valuation.Rows[j].ScryfallID {
			return valuation.Rows[i].ScryfallID < valuation.Rows[j].ScryfallID
		}
		return valuation.Rows[i].Finish < valuation.Rows[j].Finish
	})

	metrics.CollectionValueUSD.Set(valuation.TotalValue)
	return valuation
}

// TopMovers lists the keys with the largest percentage change between the
// latest state date and the newest observation at or before windowDays
// earlier. Keys missing either endpoint, or with a non-positive starting
// price, are skipped.
func TopMovers(stateRows []models.PriceRow, windowDays, limit int) []MoverRow {
	dates := models.DistinctDates(stateRows)
	if len(dates) == 0 || windowDays <= 0 {
		return nil
	}
	toDate := dates[len(dates)-1]
	cutoff, ok := dateMinusDays(toDate, windowDays)
	if !ok {
		return nil
	}

	type endpoints struct {
		fromDate string
		from     *float64
		to       *float64
	}
	byKey := make(map[models.CardKey]*endpoints)
	for _, row := range stateRows {
		ep, ok := byKey[row.Key()]
		if !ok {
			ep = &endpoints{}
			byKey[row.Key()] = ep
		}
		price := row.Price
		switch {
		case row.Date == toDate:
			ep.to = &price
		case row.Date <= cutoff && row.Date >= ep.fromDate:
			ep.fromDate = row.Date
			ep.from = &price
		}
	}

	var movers []MoverRow
	for key, ep := range byKey {
		if ep.from == nil || ep.to == nil || *ep.from <= 0 {
			continue
		}
		movers = append(movers, MoverRow{
			ScryfallID: key.ScryfallID,
			Finish:     key.Finish,
			FromDate:   ep.fromDate,
			FromPrice:  *ep.from,
			ToDate:     toDate,
			ToPrice:    *ep.to,
			AbsChange:  *ep.to - *ep.from,
			PctChange:  (*ep.to - *ep.from) / *ep.from,
		})
	}

	sort.Slice(movers, func(i, j int) bool {
		if movers[i].PctChange != movers[j].PctChange {
			return movers[i].PctChange > movers[j].PctChange
		}
		if movers[i].ScryfallID != movers[j].ScryfallID {
			return movers[i].ScryfallID < movers[j].ScryfallID
		}
		return movers[i].Finish < movers[j].Finish
	})
	if limit > 0 && len(movers) > limit {
		movers = movers[:limit]
	}
	return movers
}
