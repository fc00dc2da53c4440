package panel

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// InstrumentID identifies one instrument column. The source stores it as the
// column header, normally the string form of an integer stock id.
type InstrumentID string

// String returns the id as it appears in the source header
func (id InstrumentID) String() string {
	return string(id)
}

// Compare orders ids numerically when both parse as integers and lexically
// otherwise. Numeric ids sort before non-numeric ones.
func (id InstrumentID) Compare(other InstrumentID) int {
	a, aErr := strconv.ParseInt(string(id), 10, 64)
	b, bErr := strconv.ParseInt(string(other), 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		// "7" and "07" are distinct columns
		return strings.Compare(string(id), string(other))
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(string(id), string(other))
}

// Observation is one present cell of the panel.
type Observation struct {
	TimeID       int64        `json:"time_id"`
	InstrumentID InstrumentID `json:"instrument_id"`
	Value        float64      `json:"value"`
}

// Dataset is the immutable realized-volatility panel. Rows are sorted by
// time id and columns by instrument id; absent cells hold NaN internally and
// are never returned to callers.
type Dataset struct {
	source      string
	timeIDs     []int64
	instruments []InstrumentID
	column      map[InstrumentID]int
	cells       [][]float64 // cells[row][col]
	present     int
}

func newDataset(source string, timeIDs []int64, instruments []InstrumentID, cells [][]float64) *Dataset {
	ds := &Dataset{
		source:      source,
		timeIDs:     timeIDs,
		instruments: instruments,
		column:      make(map[InstrumentID]int, len(instruments)),
		cells:       cells,
	}
	for i, id := range instruments {
		ds.column[id] = i
	}
	for _, row := range cells {
		for _, v := range row {
			if !math.IsNaN(v) {
				ds.present++
			}
		}
	}
	return ds
}

// Source returns the path or label the dataset was loaded from
func (d *Dataset) Source() string {
	return d.source
}

// TimeRange returns the smallest and largest time id
func (d *Dataset) TimeRange() (int64, int64) {
	return d.timeIDs[0], d.timeIDs[len(d.timeIDs)-1]
}

// TimeIDs returns a copy of the ordered time ids
func (d *Dataset) TimeIDs() []int64 {
	out := make([]int64, len(d.timeIDs))
	copy(out, d.timeIDs)
	return out
}

// InstrumentIDs returns a copy of the instrument ids in ascending order
func (d *Dataset) InstrumentIDs() []InstrumentID {
	out := make([]InstrumentID, len(d.instruments))
	copy(out, d.instruments)
	return out
}

// HasInstrument reports whether id is a column of the panel
func (d *Dataset) HasInstrument(id InstrumentID) bool {
	_, ok := d.column[id]
	return ok
}

// Len returns the number of present observations
func (d *Dataset) Len() int {
	return d.present
}

// ValuesInWindow returns every present observation with
// start <= time_id <= end, ordered by time id then instrument id.
// An inverted window yields nil.
func (d *Dataset) ValuesInWindow(start, end int64) []Observation {
	lo, hi := d.window(start, end)
	if lo >= hi {
		return nil
	}

	var out []Observation
	for r := lo; r < hi; r++ {
		for c, v := range d.cells[r] {
			if math.IsNaN(v) {
				continue
			}
			out = append(out, Observation{
				TimeID:       d.timeIDs[r],
				InstrumentID: d.instruments[c],
				Value:        v,
			})
		}
	}
	return out
}

// Column returns the present observations of one instrument in time order.
// The boolean is false when the instrument is not part of the panel.
func (d *Dataset) Column(id InstrumentID) ([]Observation, bool) {
	c, ok := d.column[id]
	if !ok {
		return nil, false
	}
	out := make([]Observation, 0, len(d.timeIDs))
	for r, row := range d.cells {
		if math.IsNaN(row[c]) {
			continue
		}
		out = append(out, Observation{TimeID: d.timeIDs[r], InstrumentID: id, Value: row[c]})
	}
	return out, true
}

// window maps an inclusive time range to a half-open row range
func (d *Dataset) window(start, end int64) (int, int) {
	if start > end {
		return 0, 0
	}
	lo := sort.Search(len(d.timeIDs), func(i int) bool { return d.timeIDs[i] >= start })
	hi := sort.Search(len(d.timeIDs), func(i int) bool { return d.timeIDs[i] > end })
	return lo, hi
}
