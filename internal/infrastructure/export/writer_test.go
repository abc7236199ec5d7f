package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() Dataset {
	return Dataset{
		Columns: []string{"order_sn", "recipient_name", "product_barcode"},
		Rows: [][]string{
			{"1001", "Alice, Chen", "093766217126"},
			{"1002", "王小明", ""},
		},
	}
}

func TestCSVWriter(t *testing.T) {
	dir := t.TempDir()

	t.Run("with bom", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "out.csv")
		require.NoError(t, CSVWriter{BOM: true}.Write(path, sample()))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

		records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, sample().Columns, records[0])
		assert.Equal(t, []string{"1001", "Alice, Chen", "093766217126"}, records[1])
		assert.Equal(t, "王小明", records[2][1])
	})

	t.Run("without bom", func(t *testing.T) {
		path := filepath.Join(dir, "plain.csv")
		require.NoError(t, CSVWriter{}.Write(path, Dataset{Columns: []string{"a"}}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "a\n", string(data))
	})
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, XLSXWriter{}.Write(path, sample()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, DefaultSheet, f.GetSheetName(0))
	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, sample().Columns, rows[0])
	assert.Equal(t, "093766217126", rows[1][2])
	assert.Equal(t, "王小明", rows[2][1])
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteFile(filepath.Join(dir, "a.csv"), sample(), false))
	require.NoError(t, WriteFile(filepath.Join(dir, "a.XLSX"), sample(), false))

	err := WriteFile(filepath.Join(dir, "a.json"), sample(), false)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
