package panel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRead(t *testing.T, src string) *Dataset {
	t.Helper()
	ds, err := ReadCSV(strings.NewReader(src), DefaultLoadOptions())
	require.NoError(t, err)
	return ds
}

func TestInstrumentID_Compare(t *testing.T) {
	tests := []struct {
		a, b InstrumentID
		want int
	}{
		{"2", "10", -1},
		{"10", "2", 1},
		{"10", "10", 0},
		{"7", "07", 1},
		{"9", "abc", -1},
		{"abc", "9", 1},
		{"abc", "abd", -1},
	}
	for _, tt := range tests {
		t.Run(string(tt.a)+"_"+string(tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
		})
	}
}

func TestDataset_InstrumentOrderIsNumeric(t *testing.T) {
	ds := mustRead(t, "time_id,100,9,31\n1,0.1,0.2,0.3\n")
	assert.Equal(t, []InstrumentID{"9", "31", "100"}, ds.InstrumentIDs())
}

func TestDataset_ValuesInWindow(t *testing.T) {
	ds := mustRead(t, "time_id,1,2\n10,0.1,0.2\n20,,0.4\n30,0.5,0.6\n")

	tests := []struct {
		name       string
		start, end int64
		want       []Observation
	}{
		{
			name: "full range",
			start: 10, end: 30,
			want: []Observation{
				{10, "1", 0.1}, {10, "2", 0.2},
				{20, "2", 0.4},
				{30, "1", 0.5}, {30, "2", 0.6},
			},
		},
		{
			name: "inclusive bounds",
			start: 20, end: 20,
			want: []Observation{{20, "2", 0.4}},
		},
		{
			name: "bounds between buckets",
			start: 11, end: 29,
			want: []Observation{{20, "2", 0.4}},
		},
		{
			name: "window past the data",
			start: 31, end: 99,
			want: nil,
		},
		{
			name: "inverted window",
			start: 30, end: 10,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ds.ValuesInWindow(tt.start, tt.end))
		})
	}
}

func TestDataset_CopiesAreDefensive(t *testing.T) {
	ds := mustRead(t, "time_id,1,2\n10,0.1,0.2\n")

	ids := ds.InstrumentIDs()
	ids[0] = "mutated"
	times := ds.TimeIDs()
	times[0] = -1

	assert.Equal(t, []InstrumentID{"1", "2"}, ds.InstrumentIDs())
	assert.Equal(t, []int64{10}, ds.TimeIDs())
}

func TestDataset_Column(t *testing.T) {
	ds := mustRead(t, "time_id,1,2\n10,,0.2\n20,,0.4\n")

	col, ok := ds.Column("1")
	assert.True(t, ok)
	assert.Empty(t, col)
	assert.NotNil(t, col)

	_, ok = ds.Column("3")
	assert.False(t, ok)
	assert.True(t, ds.HasInstrument("2"))
	assert.False(t, ds.HasInstrument("3"))
}
