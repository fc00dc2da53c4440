// Package timeseries extracts the realized volatility history of one
// instrument from the panel.
package timeseries

import (
	"fmt"

	"volexplorer/internal/panel"
)

// Point is one observation of the series
type Point struct {
	TimeID     int64   `json:"time_id"`
	Volatility float64 `json:"volatility"`
}

// UnknownInstrumentError is returned for an instrument that is not a column
// of the panel.
type UnknownInstrumentError struct {
	InstrumentID panel.InstrumentID
}

func (e *UnknownInstrumentError) Error() string {
	return fmt.Sprintf("unknown instrument %q", string(e.InstrumentID))
}

// Is matches panel.ErrUnknownInstrument
func (e *UnknownInstrumentError) Is(target error) bool {
	return target == panel.ErrUnknownInstrument
}

// Series returns the observations of id in ascending time order. A known
// instrument without observations gives an empty, non-nil slice.
func Series(ds *panel.Dataset, id panel.InstrumentID) ([]Point, error) {
	obs, ok := ds.Column(id)
	if !ok {
		return nil, &UnknownInstrumentError{InstrumentID: id}
	}

	points := make([]Point, len(obs))
	for i, o := range obs {
		points[i] = Point{TimeID: o.TimeID, Volatility: o.Value}
	}
	return points, nil
}

// Ticks picks about maxTicks time ids to label on an axis, taking every
// len(points)/maxTicks-th point starting with the first.
func Ticks(points []Point, maxTicks int) []int64 {
	if len(points) == 0 || maxTicks <= 0 {
		return []int64{}
	}

	step := len(points) / maxTicks
	if step < 1 {
		step = 1
	}

	ticks := make([]int64, 0, len(points)/step+1)
	for i := 0; i < len(points); i += step {
		ticks = append(ticks, points[i].TimeID)
	}
	return ticks
}
