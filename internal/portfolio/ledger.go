// Package portfolio holds the per-session ledger of holdings and derives
// its valuation.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"volexplorer/internal/panel"
)

// ErrInvalidHolding is matched by every InvalidHoldingError
var ErrInvalidHolding = errors.New("invalid holding")

// InvalidHoldingError reports a rejected Add
type InvalidHoldingError struct {
	InstrumentID panel.InstrumentID
	Field        string
	Value        float64
}

func (e *InvalidHoldingError) Error() string {
	return fmt.Sprintf("invalid holding for %q: %s must be a finite number >= 0, got %v",
		string(e.InstrumentID), e.Field, e.Value)
}

// Is matches ErrInvalidHolding
func (e *InvalidHoldingError) Is(target error) bool {
	return target == ErrInvalidHolding
}

// Holding is a position in one instrument
type Holding struct {
	InstrumentID panel.InstrumentID `json:"instrument_id"`
	Volume       float64            `json:"volume"`
	Price        float64            `json:"price"`
}

// Ledger is an insertion-ordered set of holdings, at most one per
// instrument. It is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	holdings []Holding
	index    map[panel.InstrumentID]int
}

// NewLedger returns an empty ledger
func NewLedger() *Ledger {
	return &Ledger{index: make(map[panel.InstrumentID]int)}
}

// Add records a purchase. An existing holding accumulates volume and takes
// the new price; a new instrument is appended. Invalid input leaves the
// ledger unchanged.
func (l *Ledger) Add(id panel.InstrumentID, volume, price float64) error {
	if err := checkAmount(id, "volume", volume); err != nil {
		return err
	}
	if err := checkAmount(id, "price", price); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.index == nil {
		l.index = make(map[panel.InstrumentID]int)
	}
	i, exists := l.index[id]
	merged := volume
	if exists {
		merged += l.holdings[i].Volume
	}
	if err := checkAmount(id, "volume", merged); err != nil {
		return err
	}
	if err := l.checkTotalLocked(id, merged*price); err != nil {
		return err
	}

	if exists {
		l.holdings[i].Volume = merged
		l.holdings[i].Price = price
		return nil
	}
	l.index[id] = len(l.holdings)
	l.holdings = append(l.holdings, Holding{InstrumentID: id, Volume: volume, Price: price})
	return nil
}

// checkTotalLocked rejects a holding value that would make the row value or
// the portfolio total overflow. Callers hold mu.
func (l *Ledger) checkTotalLocked(id panel.InstrumentID, value float64) error {
	if err := checkAmount(id, "value", value); err != nil {
		return err
	}
	total := value
	for _, h := range l.holdings {
		if h.InstrumentID != id {
			total += h.Volume * h.Price
		}
	}
	return checkAmount(id, "total value", total)
}

// Clear removes every holding
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holdings = nil
	l.index = make(map[panel.InstrumentID]int)
}

// Snapshot returns a copy of the holdings in insertion order
func (l *Ledger) Snapshot() []Holding {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Holding, len(l.holdings))
	copy(out, l.holdings)
	return out
}

// Len returns the number of holdings
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holdings)
}

func checkAmount(id panel.InstrumentID, field string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidHoldingError{InstrumentID: id, Field: field, Value: v}
	}
	return nil
}
