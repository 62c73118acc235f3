package services

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// ErrSanityCheck is returned when none of the sampled mapped UUIDs appear in
// the price dump keyspace, which means the identifier mapping is suspect.
var ErrSanityCheck = errors.New("identifier mapping sanity check failed")

// sanityCheckSampleSize bounds how many mapped UUIDs are probed against the
// price dump.
const sanityCheckSampleSize = 20

// identifierAliases holds the scryfall id variants seen inside the
// "identifiers" substructure of MTGJSON payloads.
type identifierAliases struct {
	ScryfallID      string `json:"scryfallId"`
	ScryfallIDSnake string `json:"scryfall_id"`
	ScryfallIDUpper string `json:"scryfallID"`
}

// identifierPayload carries every place a scryfall id can hide in a dump
// entry: nested under "identifiers" or as a top-level alias.
type identifierPayload struct {
	Identifiers     identifierAliases `json:"identifiers"`
	ScryfallID      string            `json:"scryfallId"`
	ScryfallIDSnake string            `json:"scryfall_id"`
	ScryfallIDUpper string            `json:"scryfallID"`
}

// candidates returns the payload's scryfall id candidates in precedence
// order: nested identifiers first, then top-level aliases.
func (p identifierPayload) candidates() []string {
	ordered := []string{
		p.Identifiers.ScryfallID,
		p.Identifiers.ScryfallIDSnake,
		p.Identifiers.ScryfallIDUpper,
		p.ScryfallID,
		p.ScryfallIDSnake,
		p.ScryfallIDUpper,
	}

	out := ordered[:0]
	for _, candidate := range ordered {
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

// BuildScryfallToUUIDMap streams the AllIdentifiers dump and maps each
// collection scryfall id to its MTGJSON UUID. The first dump entry matching
// an id wins. Scanning stops early once every target id has been mapped.
func BuildScryfallToUUIDMap(identifiersPath string, targetIDs map[string]struct{}) (map[string]string, error) {
	sidToUUID := make(map[string]string, len(targetIDs))
	if len(targetIDs) == 0 {
		return sidToUUID, nil
	}

	err := iterDataEntries(identifiersPath, func(uuid string, payload json.RawMessage) (bool, error) {
		var entry identifierPayload
		if err := json.Unmarshal(payload, &entry); err != nil {
			return false, nil
		}

		for _, sid := range entry.candidates() {
			if _, wanted := targetIDs[sid]; !wanted {
				continue
			}
			if _, exists := sidToUUID[sid]; exists {
				continue
			}
			sidToUUID[sid] = uuid
		}

		return len(sidToUUID) == len(targetIDs), nil
	})
	if err != nil {
		return nil, err
	}

	logrus.Infof("Mapped %d/%d scryfall ids to MTGJSON UUIDs", len(sidToUUID), len(targetIDs))
	return sidToUUID, nil
}

// ValidateMappedUUIDs samples mapped UUIDs and confirms at least one appears
// as a data key in the price dump. Zero overlap means the mapping picked the
// wrong identifier field or the dumps are from mismatched versions, so the
// run must fail before producing an empty-priced seed.
func ValidateMappedUUIDs(allpricesPath string, mappedUUIDs []string) error {
	sampled := make(map[string]struct{}, sanityCheckSampleSize)
	for _, uuid := range mappedUUIDs {
		if uuid == "" {
			continue
		}
		if _, ok := sampled[uuid]; ok {
			continue
		}
		sampled[uuid] = struct{}{}
		if len(sampled) == sanityCheckSampleSize {
			break
		}
	}
	if len(sampled) == 0 {
		return nil
	}

	found := false
	err := iterDataEntries(allpricesPath, func(uuid string, _ json.RawMessage) (bool, error) {
		if _, ok := sampled[uuid]; ok {
			found = true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%w: none of %d sampled mapped UUIDs were found in the AllPrices data keys; "+
			"the mapping likely returned non-MTGJSON ids or the dumps are mismatched versions",
			ErrSanityCheck, len(sampled))
	}
	return nil
}
