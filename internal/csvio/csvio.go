// Package csvio reads customer import CSV files.
//
// It wraps encoding/csv with the cleanup real-world exports need:
//
//   - UTF-8 BOM skipping (Windows/Excel files)
//   - invalid UTF-8 replaced with the Unicode replacement character
//   - Excel formula-escaped headers (="value") unwrapped
//   - cell whitespace trimming
//   - fully empty rows dropped
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// utf8BOM is the byte order mark Excel prepends to UTF-8 CSV exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read parses all records from r. The first record is the header row.
// Rows may have varying field counts; the caller resolves columns by header.
func Read(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	out := make([][]string, 0, len(records))
	for _, rec := range records {
		if isEmptyRow(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD so downstream
// processing never sees broken runes. Valid input is returned unchanged
// without allocation.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("�"))
}

// isEmptyRow reports whether every cell is blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// CleanHeader normalizes a header cell: trims whitespace and unwraps the
// Excel formula escape (="value") some exports apply to preserve leading
// zeros.
func CleanHeader(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// CleanCell trims surrounding whitespace from a data cell.
func CleanCell(s string) string {
	return strings.TrimSpace(s)
}
