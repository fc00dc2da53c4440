package panel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDataLoad is matched by every *DataLoadError.
	ErrDataLoad = errors.New("data load failed")

	// ErrUnknownInstrument is returned when a query names an instrument
	// that is not a column of the dataset.
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// DataLoadError describes why a panel source was rejected.
type DataLoadError struct {
	Source string
	Reason string
	Row    int    // 1-based data row, 0 when not row specific
	Column string // column header, empty when not column specific
	Err    error
}

// Error implements the error interface
func (e *DataLoadError) Error() string {
	var b strings.Builder
	b.WriteString("load panel")
	if e.Source != "" {
		fmt.Fprintf(&b, " %s", e.Source)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	switch {
	case e.Row > 0 && e.Column != "":
		fmt.Fprintf(&b, " (row %d, column %q)", e.Row, e.Column)
	case e.Row > 0:
		fmt.Fprintf(&b, " (row %d)", e.Row)
	case e.Column != "":
		fmt.Fprintf(&b, " (column %q)", e.Column)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Is reports ErrDataLoad as a match so callers need not know the concrete type.
func (e *DataLoadError) Is(target error) bool {
	return target == ErrDataLoad
}

func loadError(source, reason string, cause error) *DataLoadError {
	return &DataLoadError{Source: source, Reason: reason, Err: cause}
}
