package krakenfeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pricepulse-network/pricepulse-daemon/pkg/feeder"

	"github.com/shopspring/decimal"
)

const (
	// KrakenWebSocketURL is the base url to open a connection with kraken.
	// This can be tweaked if in the future it might change, even if unlikely.
	KrakenWebSocketURL = "ws.kraken.com"

	name = "kraken"
)

type driver struct {
	pair string
}

// NewDriver returns the kraken wire driver for the given pair, eg. XBT/USDT.
func NewDriver(pair string) feeder.Driver {
	return &driver{pair: pair}
}

func (d *driver) Name() string { return name }

func (d *driver) URL() string {
	return fmt.Sprintf("wss://%s", KrakenWebSocketURL)
}

func (d *driver) SubscribeMessage() ([]byte, error) {
	msg := map[string]interface{}{
		"event": "subscribe",
		"pair":  []string{d.pair},
		"subscription": map[string]string{
			"name": "ticker",
		},
	}
	return json.Marshal(msg)
}

// Kraken keeps the connection alive on its own, no application ping needed.
func (d *driver) PingMessage() ([]byte, bool) { return nil, false }

func (d *driver) ControlReply(_ []byte) ([]byte, bool) { return nil, false }

func (d *driver) Compressed() bool { return false }

// Parse decodes a ticker update of shape
// [chanID, {"a":["ask",...],"b":["bid",...],...}, "ticker", "XBT/USDT"].
// Everything else, heartbeats and subscription acks included, is dropped.
func (d *driver) Parse(msg []byte) feeder.Event {
	var i []interface{}
	if err := json.Unmarshal(msg, &i); err != nil {
		return nil
	}
	if len(i) != 4 {
		return nil
	}

	pair, ok := i[3].(string)
	if !ok || pair != d.pair {
		return nil
	}

	ii, ok := i[1].(map[string]interface{})
	if !ok {
		return nil
	}

	bid, ok := parseBookSide(ii["b"])
	if !ok {
		return nil
	}
	ask, hasAsk := parseBookSide(ii["a"])

	return feeder.QuoteEvent{
		Source:     name,
		Bid:        bid,
		Ask:        ask,
		HasAsk:     hasAsk,
		ObservedAt: time.Now(),
	}
}

func parseBookSide(v interface{}) (decimal.Decimal, bool) {
	side, ok := v.([]interface{})
	if !ok || len(side) < 1 {
		return decimal.Zero, false
	}
	priceStr, ok := side[0].(string)
	if !ok {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}
