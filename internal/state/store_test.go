package state

import (
	"testing"

	"github.com/cardledger/mtg-tracker/internal/models"
)

func row(date, sid string, finish models.Finish, price float64) models.PriceRow {
	return models.PriceRow{Date: date, ScryfallID: sid, Finish: finish, MTGJSONUUID: "uuid-" + sid, Price: price}
}

func TestMergeKeepsIncomingOnConflict(t *testing.T) {
	prior := []models.PriceRow{
		row("2024-03-09", "sid-1", models.FinishNormal, 10.0),
		row("2024-03-10", "sid-1", models.FinishNormal, 11.0),
	}
	incoming := []models.PriceRow{
		// Re-observation of an existing slot with a corrected price.
		row("2024-03-10", "sid-1", models.FinishNormal, 12.5),
		row("2024-03-10", "sid-2", models.FinishFoil, 3.0),
	}

	merged := Merge(prior, incoming)
	if len(merged) != 3 {
		t.Fatalf("Expected 3 rows after dedupe, got %d", len(merged))
	}
	for _, r := range merged {
		if r.ScryfallID == "sid-1" && r.Date == "2024-03-10" && r.Price != 12.5 {
			t.Errorf("Incoming observation should win the (date, key) slot, got price %v", r.Price)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	rows := []models.PriceRow{
		row("2024-03-09", "sid-1", models.FinishNormal, 10.0),
		row("2024-03-10", "sid-1", models.FinishNormal, 11.0),
	}

	once := Merge(rows, nil)
	twice := Merge(once, once)
	if len(twice) != len(once) {
		t.Fatalf("Merging a state with itself should not grow it: %d vs %d", len(twice), len(once))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("Row %d changed across idempotent merge: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestTruncateKeepsLastDistinctDates(t *testing.T) {
	var rows []models.PriceRow
	dates := []string{"2024-03-01", "2024-03-02", "2024-03-05", "2024-03-09", "2024-03-10"}
	for _, date := range dates {
		rows = append(rows, row(date, "sid-1", models.FinishNormal, 10.0))
		rows = append(rows, row(date, "sid-2", models.FinishFoil, 5.0))
	}

	truncated := Truncate(rows, 3)
	kept := models.DistinctDates(truncated)
	want := []string{"2024-03-05", "2024-03-09", "2024-03-10"}
	if len(kept) != len(want) {
		t.Fatalf("Expected dates %v, got %v", want, kept)
	}
	for i := range want {
		if kept[i] != want[i] {
			t.Fatalf("Expected dates %v, got %v", want, kept)
		}
	}
	if len(truncated) != 6 {
		t.Errorf("Expected 2 rows per kept date, got %d total", len(truncated))
	}

	// Retention counts distinct dates, not calendar span: gaps don't shrink
	// the window.
	if got := Truncate(rows, 10); len(models.DistinctDates(got)) != 5 {
		t.Errorf("Truncate with room to spare should keep all dates")
	}

	if got := Truncate(rows, 0); got != nil {
		t.Errorf("Non-positive retention should empty the state, got %d rows", len(got))
	}
}
