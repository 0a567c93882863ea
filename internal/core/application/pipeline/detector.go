package pipeline

import (
	"time"

	"github.com/pricepulse-network/pricepulse-daemon/internal/core/domain"
	"github.com/pricepulse-network/pricepulse-daemon/pkg/feeder"
	"github.com/pricepulse-network/pricepulse-daemon/pkg/mathutil"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type detectorOpts struct {
	window         time.Duration
	upperThreshold decimal.Decimal
	lowerThreshold decimal.Decimal
	offset         decimal.Decimal
	syntheticTick  decimal.Decimal

	now            func() time.Time
	scheduleExpiry func(window time.Duration, generation uint64)
	fire           func(tick domain.PriceTick)
}

// detector correlates the trigger feed with the reference feed. A directional
// tick on the trigger feed arms a short window; if the reference book
// imbalance crosses the threshold for that side inside the window, one
// synthetic tick fires. Only the pipeline goroutine touches it.
type detector struct {
	detectorOpts

	prevBid decimal.Decimal
	prevAsk decimal.Decimal
	hasPrev bool

	refBid  decimal.Decimal
	refAsk  decimal.Decimal
	hasBook bool

	pending    *domain.PendingTrigger
	generation uint64

	firedBuy  *domain.Deadband
	firedSell *domain.Deadband
}

func newDetector(opts detectorOpts) *detector {
	return &detector{
		detectorOpts: opts,
		firedBuy:     domain.NewDeadband(opts.syntheticTick),
		firedSell:    domain.NewDeadband(opts.syntheticTick),
	}
}

// onTriggerTick compares the tick against the previous one from the same feed
// and, on a directional move, arms a window based on the current best price
// of the reference feed. An armed window still pending is replaced, not fired.
func (d *detector) onTriggerTick(e feeder.QuoteEvent) {
	prevBid, prevAsk, hasPrev := d.prevBid, d.prevAsk, d.hasPrev
	d.prevBid, d.prevAsk, d.hasPrev = e.Bid, e.Ask, true

	if !hasPrev {
		return
	}

	var direction domain.TradeDirection
	switch {
	case e.Bid.GreaterThan(prevBid):
		direction = domain.DirectionBuy
	case e.HasAsk && e.Ask.LessThan(prevAsk):
		direction = domain.DirectionSell
	default:
		return
	}

	if !d.hasBook {
		// No reference best price known yet, nothing to base the window on.
		return
	}

	basePrice := d.refBid
	if direction == domain.DirectionSell {
		basePrice = d.refAsk
	}

	d.generation++
	d.pending = &domain.PendingTrigger{
		Direction:  direction,
		BasePrice:  basePrice,
		Deadline:   d.now().Add(d.window),
		Generation: d.generation,
	}
	d.scheduleExpiry(d.window, d.generation)

	log.Debugf(
		"detector: %s window armed at base %s",
		direction, basePrice,
	)
}

// onReferenceUpdate evaluates the book imbalance against an armed window.
// Firing is single-shot: the pending trigger is consumed whether or not the
// synthetic tick survives the per-direction deadband.
func (d *detector) onReferenceUpdate(e feeder.DepthEvent) {
	d.refBid, d.refAsk, d.hasBook = e.Bid, e.Ask, true

	if d.pending == nil {
		return
	}
	if d.pending.Expired(d.now()) {
		d.pending = nil
		return
	}

	imbalance, ok := mathutil.Imbalance(e.BidQty, e.AskQty)
	if !ok {
		// Empty level: no decision, keep waiting for the next update or the
		// window expiry.
		return
	}

	switch d.pending.Direction {
	case domain.DirectionBuy:
		if imbalance.GreaterThanOrEqual(d.upperThreshold) {
			d.fireSynthetic(d.pending.BasePrice.Add(d.offset), domain.DirectionBuy)
			d.pending = nil
		}
	case domain.DirectionSell:
		if imbalance.LessThanOrEqual(d.lowerThreshold) {
			d.fireSynthetic(d.pending.BasePrice.Sub(d.offset), domain.DirectionSell)
			d.pending = nil
		}
	}
}

// expire closes the window from the timer side. A generation mismatch means
// the timer outlived its trigger, fired or replaced in the meantime, and must
// not touch the current one.
func (d *detector) expire(generation uint64) {
	if d.pending == nil || d.pending.Generation != generation {
		return
	}
	d.pending = nil
	log.Debug("detector: window expired with no decision")
}

// reset drops the state derived from a reconnecting or disconnecting feed. A
// pending trigger references both feeds, so it goes either way.
func (d *detector) reset(referenceSide bool) {
	d.pending = nil
	if referenceSide {
		d.hasBook = false
	} else {
		d.hasPrev = false
	}
}

func (d *detector) fireSynthetic(price decimal.Decimal, direction domain.TradeDirection) {
	deadband := d.firedBuy
	if direction == domain.DirectionSell {
		deadband = d.firedSell
	}
	if !deadband.Observe(price) {
		return
	}

	log.Debugf("detector: firing %s synthetic tick at %s", direction, price)
	d.fire(domain.NewSyntheticTick(price, direction))
}
