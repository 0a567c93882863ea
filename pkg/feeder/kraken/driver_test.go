package krakenfeed

import (
	"testing"

	"github.com/pricepulse-network/pricepulse-daemon/pkg/feeder"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseTickerUpdate(t *testing.T) {
	driver := NewDriver("XBT/USDT")

	msg := `[340,{"a":["50001.1",0,"1.000"],"b":["50000.5",0,"2.000"],"c":["50000.9","0.1"]},"ticker","XBT/USDT"]`
	event := driver.Parse([]byte(msg))
	require.NotNil(t, event)

	quote, ok := event.(feeder.QuoteEvent)
	require.True(t, ok)
	require.Equal(t, "kraken", quote.Source)
	require.True(t, quote.Bid.Equal(decimal.NewFromFloat(50000.5)))
	require.True(t, quote.HasAsk)
	require.True(t, quote.Ask.Equal(decimal.NewFromFloat(50001.1)))
}

func TestParseDropsIrrelevantMessages(t *testing.T) {
	driver := NewDriver("XBT/USDT")

	messages := []string{
		`{"event":"heartbeat"}`,
		`{"event":"subscriptionStatus","status":"subscribed","pair":"XBT/USDT"}`,
		`[340,{"a":["50001.1"],"b":["50000.5"]},"ticker","XBT/EUR"]`, // other pair
		`[340,"ticker"]`,
		`not even json`,
		``,
	}
	for _, msg := range messages {
		require.Nil(t, driver.Parse([]byte(msg)), "message not dropped: %s", msg)
	}
}

func TestParseDropsMalformedBookSides(t *testing.T) {
	driver := NewDriver("XBT/USDT")

	msg := `[340,{"a":["50001.1"],"b":[42]},"ticker","XBT/USDT"]`
	require.Nil(t, driver.Parse([]byte(msg)))
}
