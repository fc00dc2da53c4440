package exporter

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"volexplorer/internal/portfolio"
	"volexplorer/internal/screener"
)

func sampleResult() screener.Result {
	return screener.Result{
		{InstrumentID: "20", MeanVolatility: 0.2333333333333333, Observations: 3},
		{InstrumentID: "10", MeanVolatility: 0.2, Observations: 3},
	}
}

func sampleValuation() portfolio.Valuation {
	return portfolio.Valuate([]portfolio.Holding{
		{InstrumentID: "10", Volume: 8, Price: 4},
		{InstrumentID: "3", Volume: 2, Price: 16},
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"excel", FormatXLSX, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "screener.xlsx", FormatXLSX.Filename("screener"))
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
}

func TestScreenerTable(t *testing.T) {
	table := ScreenerTable(sampleResult())

	assert.Equal(t, ScreenerHeaders, table.Headers)
	assert.Equal(t, [][]string{
		{"20", "0.2333333333333333"},
		{"10", "0.2"},
	}, table.Records())
}

func TestValuationTable(t *testing.T) {
	t.Run("rows and total", func(t *testing.T) {
		table := ValuationTable(sampleValuation())

		assert.Equal(t, ValuationHeaders, table.Headers)
		require.Len(t, table.Rows, 3)
		assert.Equal(t, []string{"10", "8", "4", "32", "0.5"}, table.Records()[0])
		assert.Equal(t, []string{"Total", "", "", "64", "1"}, table.Records()[2])
	})

	t.Run("empty portfolio is header only", func(t *testing.T) {
		table := ValuationTable(portfolio.Valuate(nil))
		assert.Empty(t, table.Rows)
	})

	t.Run("all zero value has zero total share", func(t *testing.T) {
		table := ValuationTable(portfolio.Valuate([]portfolio.Holding{{InstrumentID: "1", Volume: 0, Price: 3}}))
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "0", table.Records()[1][4])
	})
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		wantBOM bool
	}{
		{name: "plain", options: WriteOptions{}},
		{name: "with BOM", options: WriteOptions{BOMPrefix: true}, wantBOM: true},
		{name: "semicolon", options: WriteOptions{Comma: ';'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, ScreenerTable(sampleResult()), tt.options))

			data := buf.Bytes()
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(data, utf8BOM))
			data = bytes.TrimPrefix(data, utf8BOM)

			reader := csv.NewReader(bytes.NewReader(data))
			if tt.options.Comma != 0 {
				reader.Comma = tt.options.Comma
			}
			records, err := reader.ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 3)
			assert.Equal(t, ScreenerHeaders, records[0])
			assert.Equal(t, "20", records[1][0])
		})
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, ValuationTable(sampleValuation())))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Portfolio"}, f.GetSheetList())
	rows, err := f.GetRows("Portfolio")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, ValuationHeaders, rows[0])
	assert.Equal(t, "3", rows[2][0])

	value, err := f.GetCellValue("Portfolio", "D2")
	require.NoError(t, err)
	assert.Equal(t, "32", value)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "screener.csv")
	require.NoError(t, WriteFile(path, FormatCSV, ScreenerTable(sampleResult())))

	assert.FileExists(t, path)
	assert.Error(t, Write(&bytes.Buffer{}, Format("pdf"), Table{}))
}
