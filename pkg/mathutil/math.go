package mathutil

import "github.com/shopspring/decimal"

func init() {
	decimal.DivisionPrecision = 8
}

// Mean returns the arithmetic mean of the given values, zero for an empty
// slice.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// Imbalance returns the fraction of visible quantity resting on the bid side
// of a book level, bidQty / (bidQty + askQty). The second return value is
// false when the level is empty and no ratio can be defined.
func Imbalance(bidQty, askQty decimal.Decimal) (decimal.Decimal, bool) {
	total := bidQty.Add(askQty)
	if total.IsZero() {
		return decimal.Zero, false
	}
	return bidQty.Div(total), true
}
