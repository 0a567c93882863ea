package bybitfeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pricepulse-network/pricepulse-daemon/pkg/feeder"

	"github.com/shopspring/decimal"
)

const (
	// BybitWebSocketURL is the base url of the bybit spot public stream.
	BybitWebSocketURL = "stream.bybit.com/v5/public/spot"

	name = "bybit"
)

type driver struct {
	symbol string
}

// NewDriver returns the bybit wire driver for the given symbol, eg. BTCUSDT.
// It subscribes to the level-1 orderbook so every update carries both the
// best prices and the quantities resting on them.
func NewDriver(symbol string) feeder.Driver {
	return &driver{symbol: symbol}
}

func (d *driver) Name() string { return name }

func (d *driver) URL() string {
	return fmt.Sprintf("wss://%s", BybitWebSocketURL)
}

func (d *driver) SubscribeMessage() ([]byte, error) {
	msg := map[string]interface{}{
		"op":   "subscribe",
		"args": []string{fmt.Sprintf("orderbook.1.%s", d.symbol)},
	}
	return json.Marshal(msg)
}

// Bybit drops connections that stay silent for more than 20s.
func (d *driver) PingMessage() ([]byte, bool) {
	return []byte(`{"op":"ping"}`), true
}

func (d *driver) ControlReply(_ []byte) ([]byte, bool) { return nil, false }

func (d *driver) Compressed() bool { return false }

type bookMessage struct {
	Topic string `json:"topic"`
	Data  struct {
		Bids [][]string `json:"b"`
		Asks [][]string `json:"a"`
	} `json:"data"`
}

// Parse decodes a level-1 orderbook update. Updates missing either side of
// the book, operation acks and pong frames are dropped.
func (d *driver) Parse(msg []byte) feeder.Event {
	var book bookMessage
	if err := json.Unmarshal(msg, &book); err != nil {
		return nil
	}
	if book.Topic != fmt.Sprintf("orderbook.1.%s", d.symbol) {
		return nil
	}

	bid, bidQty, ok := parseLevel(book.Data.Bids)
	if !ok {
		return nil
	}
	ask, askQty, ok := parseLevel(book.Data.Asks)
	if !ok {
		return nil
	}

	return feeder.DepthEvent{
		Source:     name,
		Bid:        bid,
		Ask:        ask,
		BidQty:     bidQty,
		AskQty:     askQty,
		ObservedAt: time.Now(),
	}
}

func parseLevel(levels [][]string) (decimal.Decimal, decimal.Decimal, bool) {
	if len(levels) < 1 || len(levels[0]) < 2 {
		return decimal.Zero, decimal.Zero, false
	}
	price, err := decimal.NewFromString(levels[0][0])
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	qty, err := decimal.NewFromString(levels[0][1])
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	return price, qty, true
}
