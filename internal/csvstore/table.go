// =============================================================================
// Shop POS - CSV Table Module
// =============================================================================
//
// This module reads and writes the flat-file tables (catalog, sales ledger,
// stock movements). Every cell stays a string: numeric parsing happens in
// the owning store, never here, so values like barcodes survive a
// load/save cycle untouched.
//
// FEATURES:
//   - Header-addressed rows (header -> value maps)
//   - Tolerant reading (lazy quotes, ragged rows, UTF-8 BOM)
//   - Atomic whole-file writes through pkg/utils
//   - Streaming reader for read-only consumers of large ledgers
//
// =============================================================================

package csvstore

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/pkg/utils"
)

const bom = "\ufeff"

// =============================================================================
// TABLE STRUCTURE
// =============================================================================

// Table is a parsed CSV file.
type Table struct {
	// Headers in file order.
	Headers []string

	// Rows as header -> value maps. Empty rows are skipped.
	Rows []map[string]string

	// SourceFile is the path the table was read from.
	SourceFile string
}

// HasColumn reports whether the table has the header.
func (t *Table) HasColumn(header string) bool {
	for _, h := range t.Headers {
		if h == header {
			return true
		}
	}
	return false
}

// =============================================================================
// READING
// =============================================================================

// Read parses a CSV file.
//
// PARAMETERS:
//   - path: The CSV file.
//   - settings: Delimiter settings.
//
// RETURNS:
//   - The parsed table.
//   - An error wrapping os.ErrNotExist when the file is missing, or a
//     parse error.
func Read(path string, settings config.CSVSettings) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	configureReader(reader, settings)

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}

	table := &Table{SourceFile: path}
	if len(allRows) == 0 {
		return table, nil
	}

	table.Headers = cleanHeaders(allRows[0])
	table.Rows = extractDataRows(allRows[1:], table.Headers)
	return table, nil
}

// ReadOrEmpty is Read, except a missing file yields an empty table with
// the given headers.
func ReadOrEmpty(path string, settings config.CSVSettings, headers []string) (*Table, error) {
	table, err := Read(path, settings)
	if errors.Is(err, os.ErrNotExist) {
		return &Table{Headers: append([]string(nil), headers...), SourceFile: path}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(table.Headers) == 0 {
		table.Headers = append([]string(nil), headers...)
	}
	return table, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = settings.Comma()

	// Hand-edited files often have ragged rows and stray quotes.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// cleanHeaders trims headers, strips a leading BOM, and names blank columns.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, bom)
		}
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// extractDataRows converts raw rows to header -> value maps.
func extractDataRows(rows [][]string, headers []string) []map[string]string {
	result := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		if isRowEmpty(row) {
			continue
		}
		m := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				m[header] = strings.TrimSpace(row[i])
			} else {
				m[header] = ""
			}
		}
		result = append(result, m)
	}
	return result
}

// isRowEmpty checks if every cell of a row is blank.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// WRITING
// =============================================================================

// Write replaces path with headers followed by rows. Each row map is
// written in header order; missing keys become empty cells.
func Write(path string, settings config.CSVSettings, headers []string, rows []map[string]string) error {
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		cw.Comma = settings.Comma()

		if err := cw.Write(headers); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		record := make([]string, len(headers))
		for _, row := range rows {
			for i, h := range headers {
				record[i] = row[h]
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// MergeHeaders returns base followed by any of required not already in it.
func MergeHeaders(base, required []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(out))
	for _, h := range out {
		seen[h] = true
	}
	for _, h := range required {
		if !seen[h] {
			out = append(out, h)
			seen[h] = true
		}
	}
	return out
}

// =============================================================================
// STREAMING READER
// =============================================================================

// Stream reads a CSV file one row at a time.
//
// USAGE:
//   s, err := csvstore.NewStream(path, settings)
//   if err != nil {
//       return err
//   }
//   defer s.Close()
//
//   for s.Next() {
//       row := s.Row()
//   }
//   if err := s.Err(); err != nil {
//       return err
//   }
type Stream struct {
	file      *os.File
	reader    *csv.Reader
	headers   []string
	row       map[string]string
	rowNumber int
	err       error
}

// NewStream opens path and reads its header row.
func NewStream(path string, settings config.CSVSettings) (*Stream, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader := csv.NewReader(bufio.NewReader(file))
	configureReader(reader, settings)

	header, err := reader.Read()
	if err == io.EOF {
		return &Stream{file: file, reader: reader}, nil
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("error reading header row: %w", err)
	}

	return &Stream{
		file:      file,
		reader:    reader,
		headers:   cleanHeaders(header),
		rowNumber: 1,
	}, nil
}

// Next advances to the next non-empty row.
func (s *Stream) Next() bool {
	if s.err != nil || s.headers == nil {
		return false
	}
	for {
		record, err := s.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			s.err = fmt.Errorf("error reading row %d: %w", s.rowNumber+1, err)
			return false
		}
		s.rowNumber++
		if isRowEmpty(record) {
			continue
		}
		s.row = extractDataRows([][]string{record}, s.headers)[0]
		return true
	}
}

// Row returns the current row.
func (s *Stream) Row() map[string]string { return s.row }

// Headers returns the header row.
func (s *Stream) Headers() []string { return s.headers }

// RowNumber returns the 1-based line number of the current row.
func (s *Stream) RowNumber() int { return s.rowNumber }

// Err returns the first read error.
func (s *Stream) Err() error { return s.err }

// Close closes the underlying file.
func (s *Stream) Close() error { return s.file.Close() }
