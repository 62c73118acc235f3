package services

import (
	"math"
	"testing"

	"github.com/cardledger/mtg-tracker/internal/models"
)

func defaultSpikeParams(today string) SpikeParams {
	return SpikeParams{
		TodayDate:    today,
		Windows:      []int{1, 3, 7},
		PriceFloor:   5.0,
		PctThreshold: 0.20,
		AbsMin:       1.0,
		PctOverride:  0.50,
	}
}

func stateRow(date, sid string, finish models.Finish, price float64) models.PriceRow {
	return models.PriceRow{Date: date, ScryfallID: sid, Finish: finish, MTGJSONUUID: "uuid-" + sid, Price: price}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDetectSpikesMultiWindow(t *testing.T) {
	// Prices 8, 9, 10 on the three days before today, 12 today. The 1-day
	// window lands exactly on the pct threshold, the 3-day window clears it
	// comfortably, and the 7-day window has no data yet.
	rows := []models.PriceRow{
		stateRow("2024-03-07", "sid-1", models.FinishNormal, 8.0),
		stateRow("2024-03-08", "sid-1", models.FinishNormal, 9.0),
		stateRow("2024-03-09", "sid-1", models.FinishNormal, 10.0),
		stateRow("2024-03-10", "sid-1", models.FinishNormal, 12.0),
	}
	qty := map[models.CardKey]int{
		{ScryfallID: "sid-1", Finish: models.FinishNormal}: 4,
	}

	detail := DetectSpikes(rows, qty, defaultSpikeParams("2024-03-10"))
	if len(detail) != 2 {
		t.Fatalf("Expected 2 qualifying windows, got %d: %+v", len(detail), detail)
	}

	// Sorted pct descending: the 3-day window (50%) first.
	if detail[0].WindowDays != 3 || !approx(detail[0].PctChange, 0.5) {
		t.Errorf("Expected 3-day window at 50%% first, got window %d pct %v", detail[0].WindowDays, detail[0].PctChange)
	}
	if detail[0].PastPrice != 8.0 || detail[0].PastDate != "2024-03-07" {
		t.Errorf("3-day window should compare against 8.0 on 2024-03-07, got %v on %s", detail[0].PastPrice, detail[0].PastDate)
	}
	if detail[1].WindowDays != 1 || !approx(detail[1].PctChange, 0.2) {
		t.Errorf("Expected 1-day window at exactly 20%%, got window %d pct %v", detail[1].WindowDays, detail[1].PctChange)
	}
	for _, row := range detail {
		if row.Qty == nil || *row.Qty != 4 {
			t.Errorf("Expected qty 4 attached to window %d", row.WindowDays)
		}
	}

	summary := BuildSummary(detail)
	if len(summary) != 1 {
		t.Fatalf("Expected one summary row, got %d", len(summary))
	}
	if summary[0].WindowDays != 3 {
		t.Errorf("Summary should keep the 3-day window, got %d", summary[0].WindowDays)
	}
}

func TestDetectSpikesGuardrail(t *testing.T) {
	params := defaultSpikeParams("2024-03-10")
	params.Windows = []int{1}

	// 5.00 -> 6.00 is 20% with abs 1.00: exactly at both boundaries.
	rows := []models.PriceRow{
		stateRow("2024-03-09", "sid-boundary", models.FinishNormal, 5.00),
		stateRow("2024-03-10", "sid-boundary", models.FinishNormal, 6.00),
	}
	if got := DetectSpikes(rows, nil, params); len(got) != 1 {
		t.Errorf("Boundary move (abs == abs_min, pct == threshold) should qualify, got %d rows", len(got))
	}

	// 25% rise but only 0.50 absolute and pct below the override: the
	// guardrail drops it. price_floor lowered so the floor isn't the reason.
	params.PriceFloor = 1.0
	rows = []models.PriceRow{
		stateRow("2024-03-09", "sid-small", models.FinishNormal, 2.00),
		stateRow("2024-03-10", "sid-small", models.FinishNormal, 2.50),
	}
	if got := DetectSpikes(rows, nil, params); len(got) != 0 {
		t.Errorf("Small absolute move below override should be dropped, got %d rows", len(got))
	}

	// Same cheap card doubling: pct override lets it through without abs_min.
	rows = []models.PriceRow{
		stateRow("2024-03-09", "sid-cheap", models.FinishNormal, 1.20),
		stateRow("2024-03-10", "sid-cheap", models.FinishNormal, 1.90),
	}
	if got := DetectSpikes(rows, nil, params); len(got) != 1 {
		t.Errorf("58%% move should pass via pct_override, got %d rows", len(got))
	}
}

func TestDetectSpikesPriceFloor(t *testing.T) {
	params := defaultSpikeParams("2024-03-10")
	params.Windows = []int{1}

	// 100% move but today's price is under the floor.
	rows := []models.PriceRow{
		stateRow("2024-03-09", "sid-bulk", models.FinishFoil, 2.0),
		stateRow("2024-03-10", "sid-bulk", models.FinishFoil, 4.0),
	}
	if got := DetectSpikes(rows, nil, params); len(got) != 0 {
		t.Errorf("Moves under the price floor should be ignored, got %d rows", len(got))
	}
}

func TestDetectSpikesEmptyAndMissingToday(t *testing.T) {
	params := defaultSpikeParams("2024-03-10")

	if got := DetectSpikes(nil, nil, params); got != nil {
		t.Errorf("Empty state should produce no detail, got %v", got)
	}
	if got := BuildSummary(nil); got != nil {
		t.Errorf("Empty detail should produce no summary, got %v", got)
	}

	// State exists but nothing observed today.
	rows := []models.PriceRow{
		stateRow("2024-03-08", "sid-1", models.FinishNormal, 8.0),
		stateRow("2024-03-09", "sid-1", models.FinishNormal, 16.0),
	}
	if got := DetectSpikes(rows, nil, params); len(got) != 0 {
		t.Errorf("No today column should short-circuit detection, got %d rows", len(got))
	}
}

func TestDetectSpikesQtyLeftJoin(t *testing.T) {
	params := defaultSpikeParams("2024-03-10")
	params.Windows = []int{1}

	rows := []models.PriceRow{
		stateRow("2024-03-09", "sid-unknown", models.FinishNormal, 10.0),
		stateRow("2024-03-10", "sid-unknown", models.FinishNormal, 15.0),
	}
	// Quantity map knows a different key only.
	qty := map[models.CardKey]int{
		{ScryfallID: "sid-other", Finish: models.FinishNormal}: 2,
	}

	detail := DetectSpikes(rows, qty, params)
	if len(detail) != 1 {
		t.Fatalf("Expected one spike, got %d", len(detail))
	}
	if detail[0].Qty != nil {
		t.Errorf("Unknown quantity must stay nil, got %d", *detail[0].Qty)
	}
}

func TestBuildSummaryOneRowPerKey(t *testing.T) {
	params := defaultSpikeParams("2024-03-10")

	rows := []models.PriceRow{
		stateRow("2024-03-03", "sid-a", models.FinishNormal, 6.0),
		stateRow("2024-03-07", "sid-a", models.FinishNormal, 8.0),
		stateRow("2024-03-09", "sid-a", models.FinishNormal, 10.0),
		stateRow("2024-03-10", "sid-a", models.FinishNormal, 13.0),
		stateRow("2024-03-09", "sid-a", models.FinishFoil, 20.0),
		stateRow("2024-03-10", "sid-a", models.FinishFoil, 30.0),
	}

	detail := DetectSpikes(rows, nil, params)
	if len(detail) < 3 {
		t.Fatalf("Expected multiple qualifying windows across finishes, got %d", len(detail))
	}

	summary := BuildSummary(detail)
	seen := make(map[models.CardKey]bool)
	for _, row := range summary {
		if seen[row.Key()] {
			t.Errorf("Duplicate summary row for %v", row.Key())
		}
		seen[row.Key()] = true
	}
	if len(summary) != 2 {
		t.Errorf("Expected one summary row per finish, got %d", len(summary))
	}
}

func TestNormalizeWindows(t *testing.T) {
	got := normalizeWindows([]int{7, 1, 3, 1, 0, -2})
	want := []int{1, 3, 7}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}
