package pipeline

import (
	"testing"

	"github.com/pricepulse-network/pricepulse-daemon/internal/core/domain"
	"github.com/pricepulse-network/pricepulse-daemon/pkg/feeder"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPipelinePublishesFilteredQuotes(t *testing.T) {
	tp := newTestPipeline(nil)

	tp.quote(50000, 50001)
	tp.quote(50000.2, 50001) // below tick, swallowed
	tp.quote(50001, 50002)

	require.Len(t, tp.publisher.ticks, 2)
	require.Equal(t, domain.TickNormal, tp.publisher.ticks[0].Kind)
	require.True(t, tp.publisher.ticks[0].Price.Equal(decimal.NewFromInt(50000)))
	require.True(t, tp.publisher.ticks[1].Price.Equal(decimal.NewFromInt(50001)))
}

func TestPipelineAggregatesConfiguredFeeds(t *testing.T) {
	tp := newTestPipeline([]string{"kraken", "huobi"})

	tp.quote(100, 101)
	tp.svc.handleEvent(feeder.QuoteEvent{
		Source: "huobi",
		Bid:    decimal.NewFromInt(102),
		HasAsk: false,
	})

	require.Len(t, tp.publisher.ticks, 2)
	require.True(t, tp.publisher.ticks[0].Price.Equal(decimal.NewFromInt(100)))
	require.True(t, tp.publisher.ticks[1].Price.Equal(decimal.NewFromInt(101)), "got %s", tp.publisher.ticks[1].Price)
}

func TestPipelineDisconnectedSourceLeavesTheMean(t *testing.T) {
	tp := newTestPipeline([]string{"kraken", "huobi"})

	tp.quote(100, 101)
	tp.svc.handleEvent(feeder.QuoteEvent{
		Source: "huobi",
		Bid:    decimal.NewFromInt(102),
	})
	require.Len(t, tp.publisher.ticks, 2)

	tp.svc.handleEvent(feeder.ConnStateEvent{Source: "kraken", Connected: false})

	tp.svc.handleEvent(feeder.QuoteEvent{
		Source: "huobi",
		Bid:    decimal.NewFromInt(104),
	})

	require.Len(t, tp.publisher.ticks, 3)
	last := tp.publisher.ticks[2]
	require.True(t, last.Price.Equal(decimal.NewFromInt(104)), "got %s", last.Price)
}

func TestPipelineReconnectResetsChangeFilter(t *testing.T) {
	tp := newTestPipeline(nil)

	tp.quote(50000, 50001)
	tp.quote(50000, 50001) // unchanged, swallowed
	require.Len(t, tp.publisher.ticks, 1)

	tp.svc.handleEvent(feeder.ConnStateEvent{Source: "kraken", Connected: true})

	// First post-reconnect price is always emitted.
	tp.quote(50000, 50001)
	require.Len(t, tp.publisher.ticks, 2)
}

func TestPipelineReconnectDropsPendingTrigger(t *testing.T) {
	tp := newTestPipeline(nil)

	tp.depth(50000, 50001, 1, 1)
	tp.quote(40000, 40001)
	tp.quote(40001, 40002)
	require.NotNil(t, tp.svc.detector.pending)

	tp.svc.handleEvent(feeder.ConnStateEvent{Source: "bybit", Connected: true})
	require.Nil(t, tp.svc.detector.pending)

	// No stale book either: a new directional tick cannot arm a window until
	// the reference feed speaks again.
	tp.quote(40002, 40003)
	require.Nil(t, tp.svc.detector.pending)
}

func TestPipelineIgnoresDepthFromOtherSources(t *testing.T) {
	tp := newTestPipeline(nil)

	tp.svc.handleEvent(feeder.DepthEvent{
		Source: "kraken",
		Bid:    decimal.NewFromInt(1),
		Ask:    decimal.NewFromInt(2),
		BidQty: decimal.NewFromInt(1),
		AskQty: decimal.NewFromInt(1),
	})
	require.False(t, tp.svc.detector.hasBook)
}
