// Package screener ranks instruments by their mean realized volatility over a
// time window.
//
// The pipeline is filter → reshape → aggregate → rank:
//
//	rows with start <= time_id <= end
//	→ per-instrument groups
//	→ arithmetic mean per group (instruments without observations drop out)
//	→ sort by mean, ties by ascending instrument id
//	→ first N entries
//
// Rank is pure: the same dataset and arguments always give the same Result.
package screener

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"volexplorer/internal/panel"
)

// Order selects which end of the ranking is returned
type Order int

const (
	// MostVolatile ranks by mean descending
	MostVolatile Order = iota
	// LeastVolatile ranks by mean ascending
	LeastVolatile
)

// String returns the query form of the order
func (o Order) String() string {
	switch o {
	case MostVolatile:
		return "top"
	case LeastVolatile:
		return "bottom"
	default:
		return "unknown"
	}
}

// ParseOrder accepts "top" (or empty) and "bottom"
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "top", "desc":
		return MostVolatile, nil
	case "bottom", "asc":
		return LeastVolatile, nil
	default:
		return MostVolatile, fmt.Errorf("invalid order %q: want top or bottom", s)
	}
}

// Query describes one screener request
type Query struct {
	Start int64
	End   int64
	TopN  int
	Order Order
}

// Entry is one ranked instrument
type Entry struct {
	InstrumentID   panel.InstrumentID `json:"instrument_id"`
	MeanVolatility float64            `json:"mean_volatility"`
	Observations   int                `json:"observations"`
}

// Result is an ordered ranking, at most TopN entries long
type Result []Entry

// Rank returns the topN most volatile instruments in [start, end].
// An empty or inverted window and topN <= 0 both give an empty Result.
func Rank(ds *panel.Dataset, start, end int64, topN int) Result {
	return RankBy(ds, Query{Start: start, End: end, TopN: topN, Order: MostVolatile})
}

// RankBy runs a screener query
func RankBy(ds *panel.Dataset, q Query) Result {
	if q.TopN <= 0 || q.Start > q.End {
		return Result{}
	}

	groups := make(map[panel.InstrumentID][]float64)
	for _, obs := range ds.ValuesInWindow(q.Start, q.End) {
		groups[obs.InstrumentID] = append(groups[obs.InstrumentID], obs.Value)
	}

	ranked := make(Result, 0, len(groups))
	for id, values := range groups {
		ranked = append(ranked, Entry{
			InstrumentID:   id,
			MeanVolatility: stat.Mean(values, nil),
			Observations:   len(values),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.MeanVolatility != b.MeanVolatility {
			if q.Order == LeastVolatile {
				return a.MeanVolatility < b.MeanVolatility
			}
			return a.MeanVolatility > b.MeanVolatility
		}
		return a.InstrumentID.Compare(b.InstrumentID) < 0
	})

	if len(ranked) > q.TopN {
		ranked = ranked[:q.TopN]
	}
	return ranked
}
