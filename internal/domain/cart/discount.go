// internal/domain/cart/discount.go
package cart

import (
	"github.com/shopspring/decimal"
)

// DiscountTable maps a discount code to the fraction taken off the total
type DiscountTable map[string]decimal.Decimal

// NewDiscountTable converts configured factors into exact decimals
func NewDiscountTable(codes map[string]float64) DiscountTable {
	table := make(DiscountTable, len(codes))
	for code, factor := range codes {
		table[code] = decimal.NewFromFloat(factor)
	}
	return table
}

// Lookup returns the factor for code. Codes match exactly.
func (t DiscountTable) Lookup(code string) (decimal.Decimal, bool) {
	factor, ok := t[code]
	if !ok {
		return decimal.Zero, false
	}
	return factor, true
}

// Apply returns total reduced by factor
func Apply(total, factor decimal.Decimal) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(1).Sub(factor))
}
