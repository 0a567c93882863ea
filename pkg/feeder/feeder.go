package feeder

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// ConnState tracks the lifecycle of the upstream exchange connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

var WebSocketCloseErrors = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseProtocolError,
	websocket.CloseUnsupportedData,
	websocket.CloseNoStatusReceived,
	websocket.CloseAbnormalClosure,
	websocket.CloseInvalidFramePayloadData,
	websocket.ClosePolicyViolation,
	websocket.CloseMessageTooBig,
	websocket.CloseMandatoryExtension,
	websocket.CloseInternalServerErr,
	websocket.CloseServiceRestart,
	websocket.CloseTryAgainLater,
	websocket.CloseTLSHandshake,
}

// Event is anything an adapter hands over to the pipeline. No other shape
// crosses the adapter boundary.
type Event interface {
	SourceID() string
}

// QuoteEvent is the normalized best-price update of one venue. Ask is absent
// for venues that only publish a single price.
type QuoteEvent struct {
	Source     string
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	HasAsk     bool
	ObservedAt time.Time
}

func (e QuoteEvent) SourceID() string { return e.Source }

// DepthEvent carries the best price level of one venue together with the
// visible quantities resting on it.
type DepthEvent struct {
	Source     string
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	BidQty     decimal.Decimal
	AskQty     decimal.Decimal
	ObservedAt time.Time
}

func (e DepthEvent) SourceID() string { return e.Source }

// ConnStateEvent signals a connection transition of one adapter so that all
// per-source derived state downstream can be dropped.
type ConnStateEvent struct {
	Source    string
	Connected bool
}

func (e ConnStateEvent) SourceID() string { return e.Source }

// Driver holds the wire-level details of one venue. Parse must never fail on
// malformed input: returning nil drops the message.
type Driver interface {
	Name() string
	URL() string
	SubscribeMessage() ([]byte, error)
	// PingMessage returns the application-level ping payload of the venue and
	// whether one is required. Pings are sent on a fixed cadence strictly
	// while the connection is up.
	PingMessage() ([]byte, bool)
	// ControlReply returns the payload to answer a venue control frame with,
	// eg. a server-initiated ping. The message is consumed when ok is true.
	ControlReply(msg []byte) (reply []byte, ok bool)
	// Compressed reports whether binary frames are gzip-compressed and must
	// be inflated before parsing.
	Compressed() bool
	Parse(msg []byte) Event
}
