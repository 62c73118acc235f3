package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cardledger/mtg-tracker/internal/config"
	"github.com/cardledger/mtg-tracker/internal/models"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.csv")

	rows := []models.PriceRow{
		{Date: "2024-03-09", ScryfallID: "sid-1", Finish: models.FinishNormal, MTGJSONUUID: "u-1", Price: 10.25},
		{Date: "2024-03-10", ScryfallID: "sid-1", Finish: models.FinishNormal, MTGJSONUUID: "u-1", Price: 12.0},
		{Date: "2024-03-10", ScryfallID: "sid-2", Finish: models.FinishEtched, Price: 0.07},
	}
	if err := WriteSnapshot(path, rows); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("Expected %d rows, got %d", len(rows), len(got))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("Row %d mismatch: wrote %+v, read %+v", i, rows[i], got[i])
		}
	}
}

func TestReadSnapshotDropsBadPrices(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.csv")
	content := "date,scryfall_id,finish,mtgjson_uuid,price\n" +
		"2024-03-10,sid-1,normal,u-1,12.5\n" +
		"2024-03-10,sid-2,foil,u-2,not-a-price\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ScryfallID != "sid-1" {
		t.Errorf("Expected only the parseable row to survive, got %+v", rows)
	}
}

func TestReadSnapshotMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.csv")
	if err := os.WriteFile(path, []byte("date,scryfall_id,price\n2024-03-10,sid-1,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadSnapshot(path); err == nil {
		t.Error("Snapshot without the finish column should be rejected")
	}
}

func TestReadSnapshotOptionalUUID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.csv")
	if err := os.WriteFile(path, []byte("date,scryfall_id,finish,price\n2024-03-10,sid-1,normal,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(rows) != 1 || rows[0].MTGJSONUUID != "" {
		t.Errorf("Missing mtgjson_uuid column should default to empty, got %+v", rows)
	}
}

func TestLoadPriorStateFallback(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.csv")
	seedPath := filepath.Join(dir, "seed.csv")

	// Neither exists.
	if _, err := LoadPriorState(statePath, seedPath); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}

	// Only the seed exists.
	seedRows := []models.PriceRow{{Date: "2024-03-09", ScryfallID: "sid-1", Finish: models.FinishNormal, Price: 8.0}}
	if err := WriteSnapshot(seedPath, seedRows); err != nil {
		t.Fatal(err)
	}
	rows, err := LoadPriorState(statePath, seedPath)
	if err != nil {
		t.Fatalf("Seed fallback failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Price != 8.0 {
		t.Errorf("Expected seed rows, got %+v", rows)
	}

	// Current state takes precedence once written.
	stateRows := []models.PriceRow{{Date: "2024-03-10", ScryfallID: "sid-1", Finish: models.FinishNormal, Price: 12.0}}
	if err := WriteSnapshot(statePath, stateRows); err != nil {
		t.Fatal(err)
	}
	rows, err = LoadPriorState(statePath, seedPath)
	if err != nil {
		t.Fatalf("LoadPriorState failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Price != 12.0 {
		t.Errorf("Expected current state rows, got %+v", rows)
	}
}

func TestNewBackendUnknownKind(t *testing.T) {
	if _, err := NewBackend(config.StateBackendConfig{Kind: "s3"}); err == nil {
		t.Error("Unknown backend kind should be a configuration error")
	}
}

func TestLocalBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backend := NewLocalPathBackend(config.LocalPathConfig{
		StatePath: filepath.Join(dir, "state.csv"),
		MetaPath:  filepath.Join(dir, "meta.json"),
	})

	ctx := context.Background()
	if _, _, err := backend.LoadState(ctx); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("Expected ErrSnapshotNotFound before first save, got %v", err)
	}

	rows := []models.PriceRow{{Date: "2024-03-10", ScryfallID: "sid-1", Finish: models.FinishNormal, Price: 12.0}}
	meta := &models.RunMeta{RunID: "run-1", RunDateUTC: "2024-03-10", StateRows: 1}
	if err := backend.SaveState(ctx, rows, meta); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	gotRows, gotMeta, err := backend.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(gotRows) != 1 || gotRows[0] != rows[0] {
		t.Errorf("Rows mismatch: %+v", gotRows)
	}
	if gotMeta == nil || gotMeta.RunID != "run-1" {
		t.Errorf("Meta mismatch: %+v", gotMeta)
	}
}
