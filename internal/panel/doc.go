// Package panel holds the realized-volatility panel: an immutable table of
// volatility values indexed by (time bucket, instrument).
//
// # Source format
//
// A panel is loaded once at startup from a wide table with one time column
// (default "time_id") and one column per instrument, where the column name is
// the instrument identifier:
//
//	time_id,0,1,2
//	5,0.0041,0.0012,0.0053
//	11,0.0019,,0.0020
//
// Empty cells (and the usual NA markers) are absent observations, not zeros.
// Both .csv and .xlsx sources are accepted.
//
// # Usage
//
//	ds, err := panel.Load("data/vol_df.csv", panel.DefaultLoadOptions())
//	if err != nil {
//	    // errors.Is(err, panel.ErrDataLoad) == true
//	}
//	lo, hi := ds.TimeRange()
//	obs := ds.ValuesInWindow(lo, hi)
//
// A Dataset is never mutated after construction and is safe to share between
// goroutines without locking.
package panel
