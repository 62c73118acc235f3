package models

import "testing"

func TestSortAndDedupe(t *testing.T) {
	rows := []PriceRow{
		{Date: "2024-03-10", ScryfallID: "sid-b", Finish: FinishNormal, MTGJSONUUID: "u-b", Price: 2.0},
		{Date: "2024-03-09", ScryfallID: "sid-a", Finish: FinishFoil, MTGJSONUUID: "u-a", Price: 1.0},
		{Date: "2024-03-09", ScryfallID: "sid-a", Finish: FinishNormal, MTGJSONUUID: "u-a", Price: 3.0},
		// Duplicate slot for (2024-03-09, sid-a, foil): later row must win.
		{Date: "2024-03-09", ScryfallID: "sid-a", Finish: FinishFoil, MTGJSONUUID: "u-a", Price: 1.5},
	}

	SortPriceRows(rows)
	deduped := DedupeByDateKey(rows)
	if len(deduped) != 3 {
		t.Fatalf("Expected 3 rows after dedupe, got %d", len(deduped))
	}
	if deduped[0].ScryfallID != "sid-a" || deduped[0].Finish != FinishFoil {
		t.Errorf("Sort order should be (scryfall_id, finish, date), got %+v", deduped[0])
	}
	for _, row := range deduped {
		if row.Finish == FinishFoil && row.Price != 1.5 {
			t.Errorf("Keep-last should retain the later duplicate, got %v", row.Price)
		}
	}
}

func TestDistinctDates(t *testing.T) {
	rows := []PriceRow{
		{Date: "2024-03-10"},
		{Date: "2024-03-08"},
		{Date: "2024-03-10"},
		{Date: "2024-03-09"},
	}
	got := DistinctDates(rows)
	want := []string{"2024-03-08", "2024-03-09", "2024-03-10"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestNormalizeFinish(t *testing.T) {
	tests := []struct {
		raw       string
		want      Finish
		defaulted bool
	}{
		{"normal", FinishNormal, false},
		{"Foil", FinishFoil, false},
		{" etched ", FinishEtched, false},
		{"", FinishNormal, true},
		{"glitter", FinishNormal, true},
	}
	for _, tt := range tests {
		got, defaulted := NormalizeFinish(tt.raw)
		if got != tt.want || defaulted != tt.defaulted {
			t.Errorf("NormalizeFinish(%q) = (%s, %v), want (%s, %v)", tt.raw, got, defaulted, tt.want, tt.defaulted)
		}
	}
}
