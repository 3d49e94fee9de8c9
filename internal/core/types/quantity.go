// Package types provides quantity helpers shared by the ledger and the API layer.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity is a stock quantity with arbitrary precision.
type Quantity = decimal.Decimal

// ParseQuantity parses a decimal string. Exponent notation is rejected to keep
// client input unambiguous.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty quantity")
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("quantity %q: exponent form is not supported", s)
	}
	q, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return q, nil
}
