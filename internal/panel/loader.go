package panel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultTimeColumn is the header of the time bucket column
const DefaultTimeColumn = "time_id"

// naTokens are read as absent observations, matching what pandas writes
// and reads for missing values.
var naTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
}

// LoadOptions configures how a panel source is read
type LoadOptions struct {
	TimeColumn string // header of the time column, DefaultTimeColumn when empty
	Sheet      string // xlsx sheet name, first sheet when empty
}

// DefaultLoadOptions returns the options used for the bundled dataset
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{TimeColumn: DefaultTimeColumn}
}

func (o LoadOptions) timeColumn() string {
	if o.TimeColumn == "" {
		return DefaultTimeColumn
	}
	return o.TimeColumn
}

// Load reads a panel from a .csv or .xlsx file
func Load(path string, opts LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, loadError(path, "cannot open source", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readCSV(path, f, opts)
	case ".xlsx", ".xlsm":
		return readXLSX(path, f, opts)
	default:
		return nil, loadError(path, fmt.Sprintf("unsupported file extension %q", ext), nil)
	}
}

// ReadCSV reads a comma separated panel with a header row
func ReadCSV(r io.Reader, opts LoadOptions) (*Dataset, error) {
	return readCSV("csv", r, opts)
}

// ReadXLSX reads a panel from an Excel workbook
func ReadXLSX(r io.Reader, opts LoadOptions) (*Dataset, error) {
	return readXLSX("xlsx", r, opts)
}

func readCSV(source string, r io.Reader, opts LoadOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, loadError(source, "malformed csv", err)
	}
	return fromRecords(source, records, opts)
}

func readXLSX(source string, r io.Reader, opts LoadOptions) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, loadError(source, "malformed workbook", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, loadError(source, "workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}

	// raw values: a number format must not round the stored volatility
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, loadError(source, fmt.Sprintf("cannot read sheet %q", sheet), err)
	}
	return fromRecords(source, rows, opts)
}

// fromRecords builds a dataset from a header row followed by data rows.
// Rows shorter than the header are padded with absent cells.
func fromRecords(source string, records [][]string, opts LoadOptions) (*Dataset, error) {
	if len(records) == 0 {
		return nil, loadError(source, "source is empty", nil)
	}

	header := records[0]
	timeCol := -1
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		if name == opts.timeColumn() {
			timeCol = i
		}
		if name == "" {
			return nil, &DataLoadError{Source: source, Reason: fmt.Sprintf("column %d has an empty header", i+1)}
		}
		if seen[name] {
			return nil, &DataLoadError{Source: source, Reason: "duplicate column", Column: name}
		}
		seen[name] = true
	}
	if timeCol < 0 {
		return nil, &DataLoadError{Source: source, Reason: "missing time column", Column: opts.timeColumn()}
	}

	type colRef struct {
		id  InstrumentID
		src int
	}
	cols := make([]colRef, 0, len(header)-1)
	for i, name := range header {
		if i != timeCol {
			cols = append(cols, colRef{id: InstrumentID(name), src: i})
		}
	}
	if len(cols) == 0 {
		return nil, loadError(source, "no instrument columns", nil)
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].id.Compare(cols[j].id) < 0 })

	type row struct {
		timeID int64
		cells  []float64
	}
	rows := make([]row, 0, len(records)-1)
	seenTime := make(map[int64]int, len(records)-1)

	for n, rec := range records[1:] {
		rowNum := n + 1
		if isBlank(rec) {
			continue
		}
		if len(rec) > len(header) {
			return nil, &DataLoadError{Source: source, Reason: fmt.Sprintf("row has %d fields, header has %d", len(rec), len(header)), Row: rowNum}
		}

		timeID, err := parseTimeID(field(rec, timeCol))
		if err != nil {
			return nil, &DataLoadError{Source: source, Reason: "invalid time id", Row: rowNum, Column: header[timeCol], Err: err}
		}
		if prev, dup := seenTime[timeID]; dup {
			return nil, &DataLoadError{Source: source, Reason: fmt.Sprintf("duplicate time id %d (first seen on row %d)", timeID, prev), Row: rowNum}
		}
		seenTime[timeID] = rowNum

		cells := make([]float64, len(cols))
		for c, ref := range cols {
			v, ok, err := parseCell(field(rec, ref.src))
			if err != nil {
				return nil, &DataLoadError{Source: source, Reason: "non-numeric cell", Row: rowNum, Column: string(ref.id), Err: err}
			}
			if !ok {
				v = math.NaN()
			}
			cells[c] = v
		}
		rows = append(rows, row{timeID: timeID, cells: cells})
	}
	if len(rows) == 0 {
		return nil, loadError(source, "no data rows", nil)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].timeID < rows[j].timeID })

	timeIDs := make([]int64, len(rows))
	cells := make([][]float64, len(rows))
	for i, r := range rows {
		timeIDs[i] = r.timeID
		cells[i] = r.cells
	}
	instruments := make([]InstrumentID, len(cols))
	for i, ref := range cols {
		instruments[i] = ref.id
	}

	return newDataset(source, timeIDs, instruments, cells), nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseTimeID accepts integers and integral floats ("5.0"), which is how
// spreadsheets tend to export integer columns.
func parseTimeID(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty time id")
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int64(f), nil
}

// parseCell returns ok=false for absent cells and an error for anything
// that is not a finite number.
func parseCell(s string) (float64, bool, error) {
	if naTokens[strings.ToLower(s)] {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%q is not a number", s)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false, fmt.Errorf("%q is not finite", s)
	}
	return v, true, nil
}
