package services

import (
	"testing"

	"github.com/cardledger/mtg-tracker/internal/models"
)

func viewerState() []models.PriceRow {
	return []models.PriceRow{
		stateRow("2024-03-03", "sid-a", models.FinishNormal, 8.0),
		stateRow("2024-03-09", "sid-a", models.FinishNormal, 9.0),
		stateRow("2024-03-10", "sid-a", models.FinishNormal, 12.0),
		stateRow("2024-03-10", "sid-b", models.FinishFoil, 3.0),
		stateRow("2024-03-09", "sid-c", models.FinishNormal, 5.0),
	}
}

func TestLatestPrices(t *testing.T) {
	latest := LatestPrices(viewerState())

	if got := latest[models.CardKey{ScryfallID: "sid-a", Finish: models.FinishNormal}]; got.Date != "2024-03-10" || got.Price != 12.0 {
		t.Errorf("sid-a latest should be 12.0 on 2024-03-10, got %+v", got)
	}
	// A key whose last observation is older still reports that observation.
	if got := latest[models.CardKey{ScryfallID: "sid-c", Finish: models.FinishNormal}]; got.Date != "2024-03-09" {
		t.Errorf("sid-c latest should be its own last date, got %+v", got)
	}
}

func TestBuildValuation(t *testing.T) {
	collection := []models.CollectionRow{
		{ScryfallID: "sid-a", Finish: models.FinishNormal, Qty: 2},
		{ScryfallID: "sid-b", Finish: models.FinishFoil, Qty: 3},
		{ScryfallID: "sid-unpriced", Finish: models.FinishNormal, Qty: 1},
	}

	valuation := BuildValuation(collection, viewerState())
	if valuation.AsOfDate != "2024-03-10" {
		t.Errorf("Valuation date should be the latest state date, got %s", valuation.AsOfDate)
	}
	// 2*12.0 + 3*3.0, the unpriced key contributes nothing.
	if valuation.TotalValue != 33.0 {
		t.Errorf("Expected total 33.0, got %v", valuation.TotalValue)
	}
	if valuation.PricedKeys != 2 || valuation.TotalKeys != 3 {
		t.Errorf("Expected 2/3 keys priced, got %d/%d", valuation.PricedKeys, valuation.TotalKeys)
	}

	// Rows are ranked by value; the unpriced row keeps nil price and value.
	if valuation.Rows[0].ScryfallID != "sid-a" {
		t.Errorf("Highest value row should lead, got %+v", valuation.Rows[0])
	}
	last := valuation.Rows[len(valuation.Rows)-1]
	if last.ScryfallID != "sid-unpriced" || last.LatestPrice != nil || last.Value != nil {
		t.Errorf("Unpriced key should keep nil price/value, got %+v", last)
	}
}

func TestTopMovers(t *testing.T) {
	rows := []models.PriceRow{
		// sid-up doubles over the window.
		stateRow("2024-03-03", "sid-up", models.FinishNormal, 5.0),
		stateRow("2024-03-10", "sid-up", models.FinishNormal, 10.0),
		// sid-down falls.
		stateRow("2024-03-03", "sid-down", models.FinishNormal, 10.0),
		stateRow("2024-03-10", "sid-down", models.FinishNormal, 8.0),
		// sid-gap has no observation at the cutoff; the newest older one is
		// used instead.
		stateRow("2024-03-01", "sid-gap", models.FinishNormal, 4.0),
		stateRow("2024-03-10", "sid-gap", models.FinishNormal, 6.0),
		// sid-new only exists today: no baseline, skipped.
		stateRow("2024-03-10", "sid-new", models.FinishNormal, 9.0),
	}

	movers := TopMovers(rows, 7, 10)
	if len(movers) != 3 {
		t.Fatalf("Expected 3 movers, got %+v", movers)
	}
	if movers[0].ScryfallID != "sid-up" || movers[0].PctChange != 1.0 {
		t.Errorf("sid-up should lead at +100%%, got %+v", movers[0])
	}
	if movers[len(movers)-1].ScryfallID != "sid-down" {
		t.Errorf("The decliner should rank last, got %+v", movers)
	}
	for _, mover := range movers {
		if mover.ScryfallID == "sid-gap" && mover.FromDate != "2024-03-01" {
			t.Errorf("Gap key should baseline at its newest pre-cutoff date, got %+v", mover)
		}
	}

	// Limit caps the result.
	if got := TopMovers(rows, 7, 1); len(got) != 1 || got[0].ScryfallID != "sid-up" {
		t.Errorf("Limit should keep only the top mover, got %+v", got)
	}

	if got := TopMovers(nil, 7, 10); got != nil {
		t.Errorf("Empty state should produce no movers, got %+v", got)
	}
}
