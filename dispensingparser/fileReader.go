// Package dispensingparser reads pharmacy-software export files into
// structured prescription and dispensing data for the adherence engine.
package dispensingparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// readExportFile reads a semicolon-separated export file and returns its
// records. Pharmacy software exports either UTF-8 or ISO-8859-1 depending
// on vendor and version, so the charset is detected from the content.
func readExportFile(dir, name string) ([][]string, error) {
	path := filepath.Clean(filepath.Join(dir, name))

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var reader io.Reader
	if utf8.Valid(raw) {
		// Already UTF-8, use as-is
		reader = bytes.NewReader(raw)
	} else {
		// Not UTF-8, decode from ISO-8859-1
		reader = charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw))
	}

	cr := csv.NewReader(reader)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return records, nil
}

// columnIndex maps normalized header names to their position. Upstream
// headers arrive in camelCase or PascalCase depending on the exporting
// software; normalizing once here keeps the tolerance out of the row
// parsing.
func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[normalizeHeader(name)] = i
	}
	return index
}

func normalizeHeader(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, " ", "")
	return strings.TrimPrefix(name, "\uFEFF") // byte order mark on the first column
}

// field returns the named column of a row, or an empty string when the
// column is absent or the row is short.
func field(row []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
