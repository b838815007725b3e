// Package sheet reads and writes single-sheet xlsx workbooks holding one
// table: a header row followed by data rows.
package sheet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name used when writing a workbook.
const DefaultSheet = "Sheet1"

// MaxCellChars is the longest text a cell can hold. excelize cuts longer
// strings silently, so Write refuses them instead.
const MaxCellChars = excelize.TotalCellChars

// ErrCellTooLong is returned by Write for text over MaxCellChars.
var ErrCellTooLong = fmt.Errorf("cell text exceeds %d characters", MaxCellChars)

// TooLong reports whether text would be cut when written to a cell.
func TooLong(text string) bool {
	return utf8.RuneCountInString(text) > MaxCellChars
}

// Table is the content of a workbook's first sheet.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of column name in the header, or -1.
func (t Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Value returns the cell of row at column name, or "" when the column
// is absent or the row is short.
func (t Table) Value(row []string, name string) string {
	idx := t.Index(name)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Exists reports whether a workbook is present at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Read loads the first sheet of the workbook at path. Cells are returned
// unformatted, so a date typed in Excel comes back as its serial number.
// Rows are padded to the header width; fully blank rows are dropped.
func Read(path string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return Table{}, nil
	}

	table := Table{Header: rows[0]}
	width := len(table.Header)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Write replaces the workbook at path with a single sheet containing header
// and rows. Cell values keep their Go type, so ints are stored as numbers.
// The parent directory is created when missing.
func Write(path string, header []string, rows [][]any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := setRow(f, 1, headerRow); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	for col, value := range values {
		if text, ok := value.(string); ok && TooLong(text) {
			return fmt.Errorf("row %d column %d: %w", row, col+1, ErrCellTooLong)
		}
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(DefaultSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
