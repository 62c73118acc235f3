package models

// SpikeRow is one qualifying price jump for a card key in one lookback window.
type SpikeRow struct {
	ScryfallID  string
	Finish      Finish
	MTGJSONUUID string
	Qty         *int // nil when the key carries no quantity metadata
	TodayDate   string
	TodayPrice  float64
	WindowDays  int
	PastDate    string
	PastPrice   float64
	AbsChange   float64
	PctChange   float64
}

// Key returns the spike's card key.
func (s SpikeRow) Key() CardKey {
	return CardKey{ScryfallID: s.ScryfallID, Finish: s.Finish}
}

// SpikeColumns is the fixed column order of the spike detail CSV export.
var SpikeColumns = []string{
	"scryfall_id",
	"finish",
	"mtgjson_uuid",
	"qty",
	"today_date",
	"today_price",
	"window_days",
	"past_date",
	"past_price",
	"abs_change",
	"pct_change",
}

// SummaryColumns is the spike summary export order; window_days becomes
// best_window_days because the summary keeps one window per key.
var SummaryColumns = []string{
	"scryfall_id",
	"finish",
	"mtgjson_uuid",
	"qty",
	"today_date",
	"today_price",
	"best_window_days",
	"past_date",
	"past_price",
	"abs_change",
	"pct_change",
}
