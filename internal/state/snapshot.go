// Package state implements the rolling price-state store: snapshot
// persistence, merge and truncation semantics, and the pluggable backends
// that move snapshots between runs.
package state

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/cardledger/mtg-tracker/internal/models"
)

// ErrSnapshotNotFound is returned when neither a current nor a seed snapshot
// exists. There is no valid empty-state default; callers must seed first.
var ErrSnapshotNotFound = errors.New("no prior state snapshot found")

// ReadSnapshot loads a snapshot CSV and normalizes it: the date, scryfall_id,
// finish, and price columns are required; mtgjson_uuid defaults to empty.
// Rows with unparseable prices are dropped, not surfaced as errors.
func ReadSnapshot(path string) ([]models.PriceRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer file.Close()

	rows, dropped, err := readSnapshotFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if dropped > 0 {
		logrus.Warnf("Dropped %d snapshot rows with unparseable prices from %s", dropped, path)
	}
	return rows, nil
}

func readSnapshotFrom(r io.Reader) ([]models.PriceRow, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("snapshot is empty")
	}
	if err != nil {
		return nil, 0, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, required := range []string{"date", "scryfall_id", "finish", "price"} {
		if _, ok := index[required]; !ok {
			return nil, 0, fmt.Errorf("snapshot missing required column: %s", required)
		}
	}
	uuidIdx, hasUUID := index["mtgjson_uuid"]

	var rows []models.PriceRow
	dropped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		price, err := strconv.ParseFloat(record[index["price"]], 64)
		if err != nil {
			dropped++
			continue
		}

		row := models.PriceRow{
			Date:       record[index["date"]],
			ScryfallID: record[index["scryfall_id"]],
			Finish:     models.Finish(record[index["finish"]]),
			Price:      price,
		}
		if hasUUID && uuidIdx < len(record) {
			row.MTGJSONUUID = record[uuidIdx]
		}
		rows = append(rows, row)
	}

	return rows, dropped, nil
}

// WriteSnapshot persists rows as a snapshot CSV with the fixed column order
// date, scryfall_id, finish, mtgjson_uuid, price.
func WriteSnapshot(path string, rows []models.PriceRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot %s: %w", path, err)
	}
	defer file.Close()

	if err := writeSnapshotTo(file, rows); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

func writeSnapshotTo(w io.Writer, rows []models.PriceRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(models.StateColumns); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Date,
			row.ScryfallID,
			string(row.Finish),
			row.MTGJSONUUID,
			strconv.FormatFloat(row.Price, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// LoadPriorState prefers the current snapshot, falls back to the seed
// snapshot, and fails with ErrSnapshotNotFound when neither exists.
func LoadPriorState(statePath, seedStatePath string) ([]models.PriceRow, error) {
	if _, err := os.Stat(statePath); err == nil {
		return ReadSnapshot(statePath)
	}
	if _, err := os.Stat(seedStatePath); err == nil {
		logrus.Infof("Current state missing; falling back to seed snapshot %s", seedStatePath)
		return ReadSnapshot(seedStatePath)
	}
	return nil, fmt.Errorf("%w: state=%s seed=%s", ErrSnapshotNotFound, statePath, seedStatePath)
}
