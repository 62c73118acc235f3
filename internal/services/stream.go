package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// MTGJSON bulk dumps are a single top-level object whose "data" member maps
// mtgjson_uuid to a per-card payload. The dumps reach multiple gigabytes
// uncompressed, so entries are decoded one at a time and traversal stops as
// soon as the visitor asks for it.

// entryVisitor receives one (uuid, payload) pair per dump entry. Returning
// stop=true ends the traversal without reading the rest of the stream.
type entryVisitor func(uuid string, payload json.RawMessage) (stop bool, err error)

// openDumpStream opens a dump for reading, transparently decompressing
// .xz and .gz files.
func openDumpStream(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		reader, err := xz.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open xz stream %s: %w", path, err)
		}
		return &wrappedReadCloser{Reader: reader, closer: file}, nil
	case ".gz":
		reader, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		return &wrappedReadCloser{Reader: reader, closer: file}, nil
	default:
		return file, nil
	}
}

// wrappedReadCloser closes the underlying file once the decompressed stream
// is no longer needed.
type wrappedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (w *wrappedReadCloser) Close() error {
	return w.closer.Close()
}

// iterDataEntries streams the dump at path and calls visit once per entry of
// the top-level "data" object. Payloads are passed as raw JSON so callers can
// skip decoding entries they do not care about.
func iterDataEntries(path string, visit entryVisitor) error {
	stream, err := openDumpStream(path)
	if err != nil {
		return err
	}
	defer stream.Close()

	dec := json.NewDecoder(stream)

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read dump %s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("read dump %s: expected top-level object, got %v", path, tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read dump %s: %w", path, err)
		}
		key, _ := keyTok.(string)

		if key != "data" {
			// Skip meta and any other top-level members.
			var skipped json.RawMessage
			if err := dec.Decode(&skipped); err != nil {
				return fmt.Errorf("read dump %s: %w", path, err)
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read dump %s: %w", path, err)
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '{' {
			return fmt.Errorf("read dump %s: data member is not an object", path)
		}

		for dec.More() {
			uuidTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("read dump %s: %w", path, err)
			}
			uuid, _ := uuidTok.(string)

			var payload json.RawMessage
			if err := dec.Decode(&payload); err != nil {
				return fmt.Errorf("read dump %s entry %s: %w", path, uuid, err)
			}

			stop, err := visit(uuid, payload)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}

		// data exhausted; nothing after it matters.
		return nil
	}

	return nil
}

// coercePrice parses a raw series value into a strictly positive price.
// Non-numeric and non-positive values are rejected, never coerced to zero.
func coercePrice(raw json.RawMessage) (float64, bool) {
	var price float64
	if err := json.Unmarshal(raw, &price); err != nil {
		// Some feeds quote prices as strings.
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		if _, err := fmt.Sscanf(strings.TrimSpace(text), "%f", &price); err != nil {
			return 0, false
		}
	}
	if price <= 0 {
		return 0, false
	}
	return price, true
}

// looksLikeDate reports whether a series key is a YYYY-MM-DD calendar date.
// Price leaves for the default finish are sometimes stored flat, date-keyed,
// with no finish wrapper; this heuristic detects that shape.
func looksLikeDate(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}
