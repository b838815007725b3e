package sheet

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "book.xlsx")

	err := Write(path, []string{"ID", "Nombre", "Cargo"}, [][]any{
		{1, "Ana", "Gerente"},
		{2, "Luis", ""},
	})
	require.NoError(t, err)

	table, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "Nombre", "Cargo"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"1", "Ana", "Gerente"}, table.Rows[0])
	assert.Equal(t, []string{"2", "Luis", ""}, table.Rows[1])
}

func TestWrite_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	require.NoError(t, Write(path, []string{"Usuario", "Contraseña"}, nil))

	table, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Usuario", "Contraseña"}, table.Header)
	assert.Empty(t, table.Rows)
}

func TestTable_ValueByHeader(t *testing.T) {
	table := Table{Header: []string{"B", "A"}}
	row := []string{"b-value"}

	assert.Equal(t, "b-value", table.Value(row, "B"))
	assert.Equal(t, "", table.Value(row, "A"))
	assert.Equal(t, "", table.Value(row, "missing"))
	assert.Equal(t, -1, table.Index("missing"))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")

	ok, err := Exists(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Write(path, []string{"X"}, nil))

	ok, err = Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
}

func TestWrite_RejectsOverlongCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.xlsx")

	err := Write(path, []string{"Observaciones"}, [][]any{{strings.Repeat("a", MaxCellChars+1)}})
	require.ErrorIs(t, err, ErrCellTooLong)

	exists, err := Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, Write(path, []string{"Observaciones"}, [][]any{{strings.Repeat("ñ", MaxCellChars)}}))
	table, err := Read(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, MaxCellChars, utf8.RuneCountInString(table.Rows[0][0]))
}

func TestRead_DateCellAsSerial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue(DefaultSheet, "A1", "Fecha"))
	require.NoError(t, f.SetCellValue(DefaultSheet, "A2", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Read(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	serial, err := strconv.ParseFloat(table.Rows[0][0], 64)
	require.NoError(t, err)
	assert.InDelta(t, 45730, serial, 1e-6)
}
