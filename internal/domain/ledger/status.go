package ledger

import (
	"github.com/shopspring/decimal"
)

// StockStatus is the health of an account derived from its quantities and thresholds.
type StockStatus string

const (
	StatusInStock    StockStatus = "IN_STOCK"
	StatusLowStock   StockStatus = "LOW_STOCK"
	StatusOutOfStock StockStatus = "OUT_OF_STOCK"
	StatusOverStock  StockStatus = "OVER_STOCK"
)

// Levels is the input of DeriveStatus.
// A nil Min means zero, a nil Max means unbounded.
type Levels struct {
	Current   decimal.Decimal
	Future    decimal.Decimal
	Allocated decimal.Decimal
	Min       *decimal.Decimal
	Max       *decimal.Decimal
}

// Available is current minus allocated. It may be negative.
func (l Levels) Available() decimal.Decimal {
	return l.Current.Sub(l.Allocated)
}

// DeriveStatus maps quantities to a health status. First match wins:
//
//	available < min                 LOW_STOCK
//	available == 0                  OUT_OF_STOCK
//	current + future > max          OVER_STOCK
//	otherwise                       IN_STOCK
//
// Low and out-of-stock look at available (allocation counts against it),
// over-stock looks at current plus incoming future stock.
func DeriveStatus(l Levels) StockStatus {
	available := l.Available()

	minQ := decimal.Zero
	if l.Min != nil {
		minQ = *l.Min
	}

	if available.LessThan(minQ) {
		return StatusLowStock
	}
	if available.IsZero() {
		return StatusOutOfStock
	}
	if l.Max != nil && l.Current.Add(l.Future).GreaterThan(*l.Max) {
		return StatusOverStock
	}
	return StatusInStock
}
