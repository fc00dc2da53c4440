package panel

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `time_id,20,10
3,0.1,0.3
1,0.5,0.1
2,0.1,0.2
`

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV), DefaultLoadOptions())
	require.NoError(t, err)

	lo, hi := ds.TimeRange()
	assert.Equal(t, int64(1), lo)
	assert.Equal(t, int64(3), hi)
	assert.Equal(t, []int64{1, 2, 3}, ds.TimeIDs())
	assert.Equal(t, []InstrumentID{"10", "20"}, ds.InstrumentIDs())
	assert.Equal(t, 6, ds.Len())

	col, ok := ds.Column("10")
	require.True(t, ok)
	require.Len(t, col, 3)
	assert.Equal(t, 0.1, col[0].Value)
	assert.Equal(t, 0.2, col[1].Value)
	assert.Equal(t, 0.3, col[2].Value)
}

func TestReadCSV_SparseCells(t *testing.T) {
	src := "time_id,1,2\n5,0.4,\n6,NaN,0.2\n7,,\n"
	ds, err := ReadCSV(strings.NewReader(src), DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []int64{5, 6, 7}, ds.TimeIDs())

	col, ok := ds.Column("2")
	require.True(t, ok)
	require.Len(t, col, 1)
	assert.Equal(t, int64(6), col[0].TimeID)
}

func TestReadCSV_ShortRowsArePadded(t *testing.T) {
	src := "time_id,1,2\n5,0.4\n"
	ds, err := ReadCSV(strings.NewReader(src), DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestReadCSV_IntegralFloatTimeIDs(t *testing.T) {
	src := "time_id,1\n5.0,0.4\n6,0.5\n"
	ds, err := ReadCSV(strings.NewReader(src), DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, ds.TimeIDs())
}

func TestReadCSV_CustomTimeColumn(t *testing.T) {
	src := "bucket,1\n5,0.4\n"
	ds, err := ReadCSV(strings.NewReader(src), LoadOptions{TimeColumn: "bucket"})
	require.NoError(t, err)
	assert.Equal(t, []InstrumentID{"1"}, ds.InstrumentIDs())
}

func TestReadCSV_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{name: "empty source", input: "", reason: "source is empty"},
		{name: "missing time column", input: "t,1\n1,0.2\n", reason: "missing time column"},
		{name: "no instrument columns", input: "time_id\n1\n", reason: "no instrument columns"},
		{name: "header only", input: "time_id,1\n", reason: "no data rows"},
		{name: "non-numeric cell", input: "time_id,1\n1,abc\n", reason: "non-numeric cell"},
		{name: "infinite cell", input: "time_id,1\n1,inf\n", reason: "non-numeric cell"},
		{name: "fractional time id", input: "time_id,1\n1.5,0.2\n", reason: "invalid time id"},
		{name: "missing time id", input: "time_id,1\n,0.2\n", reason: "invalid time id"},
		{name: "duplicate time id", input: "time_id,1\n1,0.2\n1,0.3\n", reason: "duplicate time id"},
		{name: "duplicate column", input: "time_id,1,1\n1,0.2,0.3\n", reason: "duplicate column"},
		{name: "empty header", input: "time_id,,1\n1,0.2,0.3\n", reason: "empty header"},
		{name: "too many fields", input: "time_id,1\n1,0.2,0.3\n", reason: "row has 3 fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := ReadCSV(strings.NewReader(tt.input), DefaultLoadOptions())
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.True(t, errors.Is(err, ErrDataLoad))

			var loadErr *DataLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Contains(t, loadErr.Error(), tt.reason)
		})
	}
}

func TestDataLoadError_Location(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("time_id,7\n1,0.2\n2,x\n"), DefaultLoadOptions())
	var loadErr *DataLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 2, loadErr.Row)
	assert.Equal(t, "7", loadErr.Column)
	assert.Contains(t, loadErr.Error(), `(row 2, column "7")`)
}

func TestLoad_FromDisk(t *testing.T) {
	dir := t.TempDir()

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "vol_df.csv")
		require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

		ds, err := Load(path, DefaultLoadOptions())
		require.NoError(t, err)
		assert.Equal(t, path, ds.Source())
		assert.Equal(t, 6, ds.Len())
	})

	t.Run("xlsx", func(t *testing.T) {
		path := filepath.Join(dir, "vol_df.xlsx")
		writeWorkbook(t, path, "Panel")

		ds, err := Load(path, LoadOptions{Sheet: "Panel"})
		require.NoError(t, err)
		assert.Equal(t, []InstrumentID{"10", "20"}, ds.InstrumentIDs())
		assert.Equal(t, 6, ds.Len())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.csv"), DefaultLoadOptions())
		assert.ErrorIs(t, err, ErrDataLoad)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "vol_df.parquet")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		_, err := Load(path, DefaultLoadOptions())
		assert.ErrorIs(t, err, ErrDataLoad)
		assert.Contains(t, err.Error(), "unsupported file extension")
	})
}

func TestReadXLSX_MissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol_df.xlsx")
	writeWorkbook(t, path, "Panel")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = ReadXLSX(bytes.NewReader(data), LoadOptions{Sheet: "Other"})
	assert.ErrorIs(t, err, ErrDataLoad)
}

func TestReadXLSX_UsesStoredValueNotDisplayFormat(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"time_id", "10"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, 0.123456789}))
	style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "B2", "B2", style))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	ds, err := ReadXLSX(&buf, DefaultLoadOptions())
	require.NoError(t, err)
	obs := ds.ValuesInWindow(1, 1)
	require.Len(t, obs, 1)
	assert.Equal(t, 0.123456789, obs[0].Value)
}

// writeWorkbook saves sampleCSV as an xlsx sheet with numeric cells
func writeWorkbook(t *testing.T, path, sheet string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), sheet)

	rows := [][]interface{}{
		{"time_id", "20", "10"},
		{3, 0.1, 0.3},
		{1, 0.5, 0.1},
		{2, 0.1, 0.2},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}
