package exporter

import (
	"volexplorer/internal/portfolio"
	"volexplorer/internal/screener"
)

// Column headers as shown in the explorer tables
var (
	ScreenerHeaders  = []string{"Stock ID", "Avg Realized Volatility"}
	ValuationHeaders = []string{"Stock ID", "Volume", "Price", "Value", "Proportion"}
)

// Cell is one table value. Numbers stay numeric in XLSX output.
type Cell struct {
	Text    string
	Number  float64
	Numeric bool
}

func textCell(s string) Cell { return Cell{Text: s} }

func numberCell(f float64) Cell {
	return Cell{Text: formatFloat(f), Number: f, Numeric: true}
}

// Table is a header row plus data rows
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]Cell
}

// Records returns the rows as strings, for CSV and terminal output
func (t Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, c := range row {
			rec[j] = c.Text
		}
		out[i] = rec
	}
	return out
}

// ScreenerTable renders a ranking in rank order
func ScreenerTable(res screener.Result) Table {
	rows := make([][]Cell, len(res))
	for i, e := range res {
		rows[i] = []Cell{textCell(e.InstrumentID.String()), numberCell(e.MeanVolatility)}
	}
	return Table{Sheet: "Screener", Headers: ScreenerHeaders, Rows: rows}
}

// ValuationTable renders a valuation followed by a total row.
// An empty valuation yields a header-only table.
func ValuationTable(v portfolio.Valuation) Table {
	rows := make([][]Cell, 0, len(v.Rows)+1)
	for _, r := range v.Rows {
		rows = append(rows, []Cell{
			textCell(r.InstrumentID.String()),
			numberCell(r.Volume),
			numberCell(r.Price),
			numberCell(r.Value),
			numberCell(r.Proportion),
		})
	}
	if len(v.Rows) > 0 {
		share := 0.0
		if v.Total > 0 {
			share = 1
		}
		rows = append(rows, []Cell{textCell("Total"), textCell(""), textCell(""), numberCell(v.Total), numberCell(share)})
	}
	return Table{Sheet: "Portfolio", Headers: ValuationHeaders, Rows: rows}
}
