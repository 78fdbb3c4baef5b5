package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a raw tabular extract: one header row plus data rows, all cells
// as strings. Typed interpretation happens in the readers, never here.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable loads a CSV or XLSX file into a Table. For XLSX only the first
// sheet is read.
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path, 0)
	default:
		return nil, fmt.Errorf("unsupported extract format %q", filepath.Ext(path))
	}
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	t := &Table{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// readXLSX reads the first sheet, treating row headerOffset (0-based) as the
// header. Reference catalogues ship with title banners above the real header;
// the offset skips them.
func readXLSX(path string, headerOffset int) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s of %s: %w", sheets[0], path, err)
	}
	if len(rows) <= headerOffset {
		return nil, fmt.Errorf("%s has no header row at offset %d", path, headerOffset)
	}

	return &Table{Header: rows[headerOffset], Rows: rows[headerOffset+1:]}, nil
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	return columnNameSanitizer.Replace(strings.TrimSpace(strings.ToLower(name)))
}

// ColIndex finds the index of the first header matching any of the candidate
// names, ignoring case, whitespace, and separator characters. Returns -1 when
// absent.
func (t *Table) ColIndex(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.Header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value at idx, or "" when the index is out of range
// for this record. Ragged rows are common in exported CSVs.
func (t *Table) Cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
