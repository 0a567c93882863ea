package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeDirection is the side signalled by a directional tick on the trigger
// feed.
type TradeDirection int

const (
	DirectionBuy TradeDirection = iota
	DirectionSell
)

func (d TradeDirection) String() string {
	if d == DirectionSell {
		return "sell"
	}
	return "buy"
}

// PendingTrigger is the one-shot armed window opened by a directional tick on
// the trigger feed. At most one exists per detector at a time; a newer
// qualifying tick replaces it and the replaced one is discarded, never fired.
// Generation identifies the trigger so that a stale expiry timer firing after
// the slot has been reused is a detectable no-op.
type PendingTrigger struct {
	Direction  TradeDirection
	BasePrice  decimal.Decimal
	Deadline   time.Time
	Generation uint64
}

// Expired reports whether the window is over at the given instant.
func (t *PendingTrigger) Expired(now time.Time) bool {
	return now.After(t.Deadline)
}
