package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

const sampleDump = `{
	"meta": {"version": "5.2.2", "date": "2024-03-10"},
	"data": {
		"uuid-a": {"name": "Card A"},
		"uuid-b": {"name": "Card B"},
		"uuid-c": {"name": "Card C"}
	}
}`

func writeDump(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)

	switch filepath.Ext(name) {
	case ".gz":
		file, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		zw := gzip.NewWriter(file)
		if _, err := zw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		if err := file.Close(); err != nil {
			t.Fatal(err)
		}
	case ".xz":
		file, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		xw, err := xz.NewWriter(file)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := xw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
		if err := xw.Close(); err != nil {
			t.Fatal(err)
		}
		if err := file.Close(); err != nil {
			t.Fatal(err)
		}
	default:
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestIterDataEntries(t *testing.T) {
	// Same content, three encodings.
	for _, name := range []string{"dump.json", "dump.json.gz", "dump.json.xz"} {
		path := writeDump(t, name, sampleDump)

		var seen []string
		err := iterDataEntries(path, func(uuid string, payload json.RawMessage) (bool, error) {
			seen = append(seen, uuid)
			return false, nil
		})
		if err != nil {
			t.Fatalf("%s: iterDataEntries failed: %v", name, err)
		}
		if len(seen) != 3 || seen[0] != "uuid-a" || seen[2] != "uuid-c" {
			t.Errorf("%s: expected all data entries in order, got %v", name, seen)
		}
	}
}

func TestIterDataEntriesEarlyExit(t *testing.T) {
	path := writeDump(t, "dump.json", sampleDump)

	var seen []string
	err := iterDataEntries(path, func(uuid string, _ json.RawMessage) (bool, error) {
		seen = append(seen, uuid)
		return uuid == "uuid-b", nil
	})
	if err != nil {
		t.Fatalf("iterDataEntries failed: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("Expected traversal to stop after uuid-b, saw %v", seen)
	}
}

func TestIterDataEntriesNotAnObject(t *testing.T) {
	path := writeDump(t, "dump.json", `[1, 2, 3]`)
	if err := iterDataEntries(path, func(string, json.RawMessage) (bool, error) { return false, nil }); err == nil {
		t.Error("Top-level array should be rejected")
	}
}

func TestCoercePrice(t *testing.T) {
	tests := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{`12.5`, 12.5, true},
		{`"3.99"`, 3.99, true},
		{`0`, 0, false},
		{`-1.5`, 0, false},
		{`"free"`, 0, false},
		{`null`, 0, false},
		{`{"usd": 1}`, 0, false},
	}
	for _, tt := range tests {
		got, ok := coercePrice(json.RawMessage(tt.raw))
		if ok != tt.valid || (ok && got != tt.want) {
			t.Errorf("coercePrice(%s) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.valid)
		}
	}
}

func TestLooksLikeDate(t *testing.T) {
	if !looksLikeDate("2024-03-10") {
		t.Error("2024-03-10 should parse as a date")
	}
	for _, bad := range []string{"normal", "2024-3-1", "20240310", "2024-13-40", ""} {
		if looksLikeDate(bad) {
			t.Errorf("%q should not look like a date", bad)
		}
	}
}
