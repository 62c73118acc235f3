package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cardledger/mtg-tracker/internal/models"
)

// IngestSummary is the operational summary emitted after ingest completes.
type IngestSummary struct {
	TotalInputRows    int
	InvalidRowsSkipped int
	DefaultedFinishes int
	UniqueKeys        int
	TotalQuantity     int
}

// IngestManaBoxCSV reads a ManaBox CSV export and writes the normalized
// collection CSV: finish normalized, quantities coerced, invalid rows
// dropped, grouped by (scryfall_id, finish) with quantities summed.
func IngestManaBoxCSV(inputPath, outputPath string) (*IngestSummary, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open collection csv %s: %w", inputPath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read collection csv %s: %w", inputPath, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, required := range []string{"scryfall_id", "qty", "finish"} {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("collection csv missing required columns: %s", strings.Join(missing, ", "))
	}

	summary := &IngestSummary{}
	grouped := make(map[models.CardKey]*models.CollectionRow)

	field := func(record []string, name string) string {
		idx, ok := index[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read collection csv %s: %w", inputPath, err)
		}
		summary.TotalInputRows++

		scryfallID := field(record, "scryfall_id")
		qty, qtyErr := strconv.Atoi(field(record, "qty"))
		if scryfallID == "" || qtyErr != nil {
			summary.InvalidRowsSkipped++
			continue
		}

		finish, defaulted := models.NormalizeFinish(field(record, "finish"))
		if defaulted {
			summary.DefaultedFinishes++
		}

		key := models.CardKey{ScryfallID: scryfallID, Finish: finish}
		row, ok := grouped[key]
		if !ok {
			grouped[key] = &models.CollectionRow{
				ScryfallID:      scryfallID,
				Finish:          finish,
				Qty:             qty,
				SetCode:         field(record, "set_code"),
				CollectorNumber: field(record, "collector_number"),
			}
			continue
		}
		row.Qty += qty
	}

	rows := make([]models.CollectionRow, 0, len(grouped))
	for _, row := range grouped {
		rows = append(rows, *row)
		summary.TotalQuantity += row.Qty
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ScryfallID != rows[j].ScryfallID {
			return rows[i].ScryfallID < rows[j].ScryfallID
		}
		return rows[i].Finish < rows[j].Finish
	})
	summary.UniqueKeys = len(rows)

	if err := writeCollectionCSV(outputPath, rows); err != nil {
		return nil, err
	}

	if summary.DefaultedFinishes > 0 {
		logrus.Warnf("Defaulted finish to %q for %d rows with blank/unknown values", models.FinishNormal, summary.DefaultedFinishes)
	}
	logrus.Infof("Ingested %d rows into %d unique (scryfall_id, finish) keys (%d invalid rows skipped)",
		summary.TotalInputRows, summary.UniqueKeys, summary.InvalidRowsSkipped)

	return summary, nil
}

func writeCollectionCSV(path string, rows []models.CollectionRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create collection dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create collection csv %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(models.CollectionColumns); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ScryfallID,
			string(row.Finish),
			strconv.Itoa(row.Qty),
			row.SetCode,
			row.CollectorNumber,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("write collection csv %s: %w", path, err)
	}
	return nil
}

// LoadCollection reads a normalized collection CSV. All CollectionColumns
// must be present; rows missing a key field or with an unparseable quantity
// are dropped and counted, never surfaced as errors.
func LoadCollection(path string) ([]models.CollectionRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, required := range models.CollectionColumns {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("collection %s missing required columns: %s", path, strings.Join(missing, ", "))
	}

	var rows []models.CollectionRow
	dropped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read collection %s: %w", path, err)
		}

		get := func(name string) string {
			idx := index[name]
			if idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		scryfallID := get("scryfall_id")
		finish := models.Finish(get("finish"))
		qty, qtyErr := strconv.Atoi(get("qty"))
		if scryfallID == "" || !finish.IsValid() || qtyErr != nil {
			dropped++
			continue
		}

		rows = append(rows, models.CollectionRow{
			ScryfallID:      scryfallID,
			Finish:          finish,
			Qty:             qty,
			SetCode:         get("set_code"),
			CollectorNumber: get("collector_number"),
		})
	}

	if dropped > 0 {
		logrus.Warnf("Dropped %d malformed collection rows from %s", dropped, path)
	}
	return rows, nil
}
