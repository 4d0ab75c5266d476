package broker

import "github.com/shopspring/decimal"

// SizingPolicy decides how many units a BUY commits given free cash and the
// current price. Quantities are floored to whole lots.
type SizingPolicy interface {
	Quantity(cash, price decimal.Decimal, lot int64) int64
}

// FractionOfCash spends a fixed fraction of the currently available cash on
// every buy. This is the default policy.
type FractionOfCash struct {
	Fraction float64
}

// Quantity floors fraction*cash/price down to a whole multiple of lot.
func (f FractionOfCash) Quantity(cash, price decimal.Decimal, lot int64) int64 {
	if price.Sign() <= 0 || lot <= 0 {
		return 0
	}
	spend := cash.Mul(decimal.NewFromFloat(f.Fraction))
	units := spend.Div(price).IntPart()
	return units / lot * lot
}

// FixedQuantity buys the same number of units on every signal, for setups
// that want the original fixed order size behaviour.
type FixedQuantity struct {
	Qty int64
}

// Quantity returns the configured size floored to a whole lot.
func (f FixedQuantity) Quantity(_, _ decimal.Decimal, lot int64) int64 {
	if lot <= 0 {
		return 0
	}
	return f.Qty / lot * lot
}
