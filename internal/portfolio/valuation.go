package portfolio

import (
	"gonum.org/v1/gonum/floats"

	"volexplorer/internal/panel"
)

// Row is one line of a valuation
type Row struct {
	InstrumentID panel.InstrumentID `json:"instrument_id"`
	Volume       float64            `json:"volume"`
	Price        float64            `json:"price"`
	Value        float64            `json:"value"`
	Proportion   float64            `json:"proportion"`
}

// Valuation is the derived view of a ledger snapshot
type Valuation struct {
	Rows  []Row   `json:"rows"`
	Total float64 `json:"total"`
}

// Empty reports whether there is nothing to chart
func (v Valuation) Empty() bool {
	return len(v.Rows) == 0
}

// Valuate computes value = volume * price per holding and each holding's
// share of the total. Every proportion is 0 when the total is 0.
func Valuate(holdings []Holding) Valuation {
	rows := make([]Row, len(holdings))
	values := make([]float64, len(holdings))
	for i, h := range holdings {
		values[i] = h.Volume * h.Price
		rows[i] = Row{
			InstrumentID: h.InstrumentID,
			Volume:       h.Volume,
			Price:        h.Price,
			Value:        values[i],
		}
	}

	total := floats.Sum(values)
	if total > 0 {
		for i := range rows {
			rows[i].Proportion = rows[i].Value / total
		}
	}
	return Valuation{Rows: rows, Total: total}
}
