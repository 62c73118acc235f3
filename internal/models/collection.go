package models

import (
	"sort"
)

// CollectionColumns is the column order of the normalized collection CSV.
var CollectionColumns = []string{"scryfall_id", "finish", "qty", "set_code", "collector_number"}

// CollectionRow is one normalized collection entry, unique by
// (scryfall_id, finish).
type CollectionRow struct {
	ScryfallID      string
	Finish          Finish
	Qty             int
	SetCode         string
	CollectorNumber string
}

// Key returns the row's card key.
func (r CollectionRow) Key() CardKey {
	return CardKey{ScryfallID: r.ScryfallID, Finish: r.Finish}
}

// CollectionKeys returns the sorted distinct card keys present in rows.
func CollectionKeys(rows []CollectionRow) []CardKey {
	set := make(map[CardKey]struct{}, len(rows))
	for _, row := range rows {
		set[row.Key()] = struct{}{}
	}

	keys := make([]CardKey, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ScryfallID != keys[j].ScryfallID {
			return keys[i].ScryfallID < keys[j].ScryfallID
		}
		return keys[i].Finish < keys[j].Finish
	})
	return keys
}

// QuantityByKey sums owned quantity per card key.
func QuantityByKey(rows []CollectionRow) map[CardKey]int {
	out := make(map[CardKey]int, len(rows))
	for _, row := range rows {
		out[row.Key()] += row.Qty
	}
	return out
}
