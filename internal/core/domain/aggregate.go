package domain

import (
	"github.com/pricepulse-network/pricepulse-daemon/pkg/mathutil"

	"github.com/shopspring/decimal"
)

// Aggregate derives a single logical price from several venues by keeping the
// latest known price per source and averaging over whatever sources are
// currently present. A disconnected source is removed entirely so it stops
// contributing to the mean.
type Aggregate struct {
	prices   map[string]decimal.Decimal
	deadband *Deadband
}

func NewAggregate(tickSize decimal.Decimal) *Aggregate {
	return &Aggregate{
		prices:   make(map[string]decimal.Decimal),
		deadband: NewDeadband(tickSize),
	}
}

// Update records the latest price of the given source and recomputes the
// mean. The returned flag is false when the new mean is swallowed by the
// aggregate deadband.
func (a *Aggregate) Update(source string, price decimal.Decimal) (decimal.Decimal, bool) {
	a.prices[source] = price

	mean := mathutil.Mean(a.values())
	if !a.deadband.Observe(mean) {
		return decimal.Zero, false
	}
	return mean, true
}

// Remove drops the source from the mean. It does not emit anything on its
// own, the next update from any remaining source will.
func (a *Aggregate) Remove(source string) {
	delete(a.prices, source)
}

func (a *Aggregate) Len() int {
	return len(a.prices)
}

func (a *Aggregate) values() []decimal.Decimal {
	values := make([]decimal.Decimal, 0, len(a.prices))
	for _, v := range a.prices {
		values = append(values, v)
	}
	return values
}
