package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cardledger/mtg-tracker/internal/models"
)

// reportTopN bounds the ranked table in the markdown report.
const reportTopN = 20

// RenderSpikesMarkdown formats the daily spike report: run parameters,
// detail and summary counts, and a ranked table of the summary set. An empty
// summary produces an explicit no-spikes message instead of an empty table.
func RenderSpikesMarkdown(detail, summary []models.SpikeRow, params SpikeParams) string {
	var sb strings.Builder

	windows := make([]string, 0, len(params.Windows))
	for _, window := range normalizeWindows(params.Windows) {
		windows = append(windows, strconv.Itoa(window))
	}

	fmt.Fprintf(&sb, "# Daily Spikes Report (%s)\n\n", params.TodayDate)
	fmt.Fprintf(&sb, "- Windows: %s\n", strings.Join(windows, ", "))
	fmt.Fprintf(&sb, "- Price floor: %.2f\n", params.PriceFloor)
	fmt.Fprintf(&sb, "- pct_threshold: %.2f\n", params.PctThreshold)
	fmt.Fprintf(&sb, "- Guardrail: abs_change >= %.2f OR pct_change >= %.2f\n\n", params.AbsMin, params.PctOverride)
	fmt.Fprintf(&sb, "Total spikes: %d (%d unique cards)\n\n", len(detail), len(summary))

	if len(summary) == 0 {
		sb.WriteString("No spikes met thresholds today.\n")
		return sb.String()
	}

	sb.WriteString("Top movers by pct_change:\n\n")
	sb.WriteString("| scryfall_id | finish | qty | best_window_days | today_price | past_price | abs_change | pct_change |\n")
	sb.WriteString("|---|---|---:|---:|---:|---:|---:|---:|\n")

	top := summary
	if len(top) > reportTopN {
		top = top[:reportTopN]
	}
	for _, row := range top {
		fmt.Fprintf(&sb, "| %s | %s | %s | %d | %.2f | %.2f | %.2f | %.2f%% |\n",
			row.ScryfallID,
			row.Finish,
			formatQty(row.Qty),
			row.WindowDays,
			row.TodayPrice,
			row.PastPrice,
			row.AbsChange,
			row.PctChange*100,
		)
	}

	return sb.String()
}

func writeTextReport(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// WriteSpikesCSV writes spike rows in the given column order. The window
// column header comes from columns, so the same writer serves both the
// detail (window_days) and summary (best_window_days) exports.
func WriteSpikesCSV(path string, rows []models.SpikeRow, columns []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(spikeRecord(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// WriteSpikesWorkbook exports detail and summary sets as one XLSX workbook
// with a sheet per set.
func WriteSpikesWorkbook(path string, detail, summary []models.SpikeRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", "Detail"); err != nil {
		return err
	}
	if err := writeSpikeSheet(book, "Detail", detail, models.SpikeColumns); err != nil {
		return err
	}

	if _, err := book.NewSheet("Summary"); err != nil {
		return err
	}
	if err := writeSpikeSheet(book, "Summary", summary, models.SummaryColumns); err != nil {
		return err
	}

	if err := book.SaveAs(path); err != nil {
		return fmt.Errorf("write workbook %s: %w", path, err)
	}
	return nil
}

func writeSpikeSheet(book *excelize.File, sheet string, rows []models.SpikeRow, columns []string) error {
	header := make([]interface{}, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.ScryfallID,
			string(row.Finish),
			row.MTGJSONUUID,
			formatQty(row.Qty),
			row.TodayDate,
			row.TodayPrice,
			row.WindowDays,
			row.PastDate,
			row.PastPrice,
			row.AbsChange,
			row.PctChange,
		}
		if err := book.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func spikeRecord(row models.SpikeRow) []string {
	return []string{
		row.ScryfallID,
		string(row.Finish),
		row.MTGJSONUUID,
		formatQty(row.Qty),
		row.TodayDate,
		strconv.FormatFloat(row.TodayPrice, 'f', -1, 64),
		strconv.Itoa(row.WindowDays),
		row.PastDate,
		strconv.FormatFloat(row.PastPrice, 'f', -1, 64),
		strconv.FormatFloat(row.AbsChange, 'f', -1, 64),
		strconv.FormatFloat(row.PctChange, 'f', -1, 64),
	}
}

func formatQty(qty *int) string {
	if qty == nil {
		return ""
	}
	return strconv.Itoa(*qty)
}
