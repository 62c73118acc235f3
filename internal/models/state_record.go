package models

import (
	"time"
)

// StateRecord is the SQLite representation of one rolling-state row, used by
// the sqlite state backend.
type StateRecord struct {
	ID          uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Date        string  `json:"date" gorm:"not null;uniqueIndex:idx_state_date_key"`
	ScryfallID  string  `json:"scryfall_id" gorm:"not null;uniqueIndex:idx_state_date_key"`
	Finish      Finish  `json:"finish" gorm:"not null;uniqueIndex:idx_state_date_key"`
	MTGJSONUUID string  `json:"mtgjson_uuid"`
	Price       float64 `json:"price" gorm:"not null"`
}

// Row converts the record back to a PriceRow.
func (r StateRecord) Row() PriceRow {
	return PriceRow{
		Date:        r.Date,
		ScryfallID:  r.ScryfallID,
		Finish:      r.Finish,
		MTGJSONUUID: r.MTGJSONUUID,
		Price:       r.Price,
	}
}

// NewStateRecord converts a PriceRow to its SQLite representation.
func NewStateRecord(row PriceRow) StateRecord {
	return StateRecord{
		Date:        row.Date,
		ScryfallID:  row.ScryfallID,
		Finish:      row.Finish,
		MTGJSONUUID: row.MTGJSONUUID,
		Price:       row.Price,
	}
}

// RunRecord stores one run's metadata document in SQLite.
type RunRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID     string    `json:"run_id" gorm:"uniqueIndex;not null"`
	Meta      string    `json:"meta" gorm:"type:text"` // RunMeta as JSON
	CreatedAt time.Time `json:"created_at"`
}
