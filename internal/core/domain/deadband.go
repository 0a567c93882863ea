package domain

import "github.com/shopspring/decimal"

// Deadband suppresses values that moved less than a fixed tick from the last
// emitted one. Its only purpose is to bound the downstream message rate, it
// does not smooth anything. The first observed value is always emitted.
type Deadband struct {
	tickSize decimal.Decimal
	last     decimal.Decimal
	hasLast  bool
}

func NewDeadband(tickSize decimal.Decimal) *Deadband {
	return &Deadband{tickSize: tickSize}
}

// Observe reports whether v moved enough to be emitted and, if so, records it
// as the new reference value.
func (d *Deadband) Observe(v decimal.Decimal) bool {
	if d.hasLast && v.Sub(d.last).Abs().LessThan(d.tickSize) {
		return false
	}

	d.last = v
	d.hasLast = true
	return true
}

// Reset forgets the last emitted value so the next observed one passes
// unconditionally. Used when the owning source reconnects after a gap.
func (d *Deadband) Reset() {
	d.hasLast = false
}
