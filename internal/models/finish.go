package models

import (
	"strings"
)

// Finish represents a card printing finish as exported by ManaBox and keyed
// by MTGJSON price series.
type Finish string

const (
	FinishNormal Finish = "normal"
	FinishFoil   Finish = "foil"
	FinishEtched Finish = "etched"
)

// AllFinishes returns all valid finishes.
func AllFinishes() []Finish {
	return []Finish{
		FinishNormal,
		FinishFoil,
		FinishEtched,
	}
}

// IsValid reports whether f is one of the known finishes.
func (f Finish) IsValid() bool {
	switch f {
	case FinishNormal, FinishFoil, FinishEtched:
		return true
	}
	return false
}

// NormalizeFinish maps raw finish strings to a known Finish.
// Blank or unknown values default to FinishNormal; the second return value
// reports whether the default was used so ingest can count fallbacks.
func NormalizeFinish(raw string) (Finish, bool) {
	normalized := Finish(strings.ToLower(strings.TrimSpace(raw)))
	if normalized.IsValid() {
		return normalized, false
	}
	return FinishNormal, true
}
