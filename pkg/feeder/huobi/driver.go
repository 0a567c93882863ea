package huobifeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pricepulse-network/pricepulse-daemon/pkg/feeder"

	"github.com/shopspring/decimal"
)

const (
	// HuobiWebSocketURL is the base url of the huobi market stream.
	HuobiWebSocketURL = "api.huobi.pro/ws"

	name = "huobi"
)

type driver struct {
	symbol string
}

// NewDriver returns the huobi wire driver for the given symbol, eg. btcusdt.
// Huobi frames arrive gzip-compressed and the server expects its pings to be
// answered at application level.
func NewDriver(symbol string) feeder.Driver {
	return &driver{symbol: symbol}
}

func (d *driver) Name() string { return name }

func (d *driver) URL() string {
	return fmt.Sprintf("wss://%s", HuobiWebSocketURL)
}

func (d *driver) SubscribeMessage() ([]byte, error) {
	msg := map[string]interface{}{
		"sub": d.channel(),
		"id":  "pricepulse",
	}
	return json.Marshal(msg)
}

func (d *driver) PingMessage() ([]byte, bool) { return nil, false }

// ControlReply answers the server ping {"ping": ts} with {"pong": ts}.
func (d *driver) ControlReply(msg []byte) ([]byte, bool) {
	var ping struct {
		Ping *int64 `json:"ping"`
	}
	if err := json.Unmarshal(msg, &ping); err != nil || ping.Ping == nil {
		return nil, false
	}
	reply, _ := json.Marshal(map[string]int64{"pong": *ping.Ping})
	return reply, true
}

func (d *driver) Compressed() bool { return true }

type bboMessage struct {
	Channel string `json:"ch"`
	Tick    *struct {
		Bid     float64 `json:"bid"`
		BidSize float64 `json:"bidSize"`
		Ask     float64 `json:"ask"`
		AskSize float64 `json:"askSize"`
	} `json:"tick"`
}

// Parse decodes a best-bid-offer update. Subscription acks and any message
// not matching the expected channel are dropped.
func (d *driver) Parse(msg []byte) feeder.Event {
	var bbo bboMessage
	if err := json.Unmarshal(msg, &bbo); err != nil {
		return nil
	}
	if bbo.Channel != d.channel() || bbo.Tick == nil {
		return nil
	}
	if bbo.Tick.Bid <= 0 {
		return nil
	}

	return feeder.QuoteEvent{
		Source:     name,
		Bid:        decimal.NewFromFloat(bbo.Tick.Bid).Round(8),
		Ask:        decimal.NewFromFloat(bbo.Tick.Ask).Round(8),
		HasAsk:     bbo.Tick.Ask > 0,
		ObservedAt: time.Now(),
	}
}

func (d *driver) channel() string {
	return fmt.Sprintf("market.%s.bbo", d.symbol)
}
