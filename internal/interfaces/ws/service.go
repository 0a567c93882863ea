package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pricepulse-network/pricepulse-daemon/internal/core/domain"
	"github.com/pricepulse-network/pricepulse-daemon/internal/core/ports"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const spotLookupTimeout = 5 * time.Second

// tickMessage is the whole envelope a subscriber receives per published tick.
type tickMessage struct {
	Kind      string          `json:"kind"`
	Price     decimal.Decimal `json:"price"`
	Direction string          `json:"direction,omitempty"`
}

type spotRequest struct {
	Type string `json:"type"`
}

type spotReply struct {
	Kind  string          `json:"kind"`
	Price decimal.Decimal `json:"price"`
}

type errorReply struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// ServiceOpts defines the parameters needed for creating a hub service with
// NewService.
type ServiceOpts struct {
	Port        int
	PriceSource ports.PriceSource
}

// Service is the subscriber-facing surface of the broadcast hub. Connecting
// is the entire subscription action: every upgraded connection receives every
// published tick until it goes away. The only message a subscriber may send
// is the one-off spot price request, answered out of band to that subscriber
// alone.
type Service struct {
	addr        string
	hub         *hub
	priceSource ports.PriceSource
	upgrader    websocket.Upgrader

	listener net.Listener
	server   *http.Server
}

func NewService(opts ServiceOpts) *Service {
	svc := &Service{
		addr:        fmt.Sprintf(":%d", opts.Port),
		hub:         newHub(),
		priceSource: opts.PriceSource,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", svc.handleSubscriber)
	svc.server = &http.Server{Handler: mux}

	return svc
}

// Start binds the listening socket and serves in background. A bind failure
// is returned synchronously.
func (s *Service) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != http.ErrServerClosed {
			log.WithError(err).Warn("hub: server stopped")
		}
	}()

	log.Debugf("hub: subscriber interface is listening on %s", s.addr)
	return nil
}

// Stop closes the listener and every subscriber connection so peers observe
// a clean disconnect rather than a timeout.
func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	s.hub.closeAll()
	s.server.Shutdown(ctx)
}

// PublishTick encodes the tick once and fans it out to every connected
// subscriber. Publishing to an empty hub is a no-op.
func (s *Service) PublishTick(tick domain.PriceTick) {
	msg := tickMessage{
		Kind:  string(tick.Kind),
		Price: tick.Price,
	}
	if tick.Kind == domain.TickSynthetic {
		msg.Direction = tick.Direction.String()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Warn("hub: cannot encode tick")
		return
	}

	s.hub.broadcast(payload)
}

// NumSubscribers returns the current size of the subscriber set.
func (s *Service) NumSubscribers() int {
	return s.hub.len()
}

func (s *Service) handleSubscriber(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("hub: upgrade failed")
		return
	}

	sub := newSubscriber(conn)
	s.hub.add(sub)
	log.Debugf("hub: subscriber %s connected", sub.id)

	go sub.writePump()
	go s.readPump(sub)
}

// readPump consumes inbound messages of one subscriber until the connection
// goes away, at which point the handle leaves the subscriber set for good.
func (s *Service) readPump(sub *subscriber) {
	defer func() {
		s.hub.remove(sub.id)
		sub.close()
		log.Debugf("hub: subscriber %s disconnected", sub.id)
	}()

	for {
		_, msg, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}

		var req spotRequest
		if err := json.Unmarshal(msg, &req); err != nil || req.Type != "spotprice" {
			// Anything else a subscriber sends is dropped.
			continue
		}

		s.handleSpotRequest(sub)
	}
}

// handleSpotRequest answers the requesting subscriber alone with a price
// looked up from the external reference source. The broadcast path is not
// involved and the other subscribers see nothing.
func (s *Service) handleSpotRequest(sub *subscriber) {
	if !sub.spotLimiter.Allow() {
		s.reply(sub, errorReply{Kind: "error", Error: "too many requests"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), spotLookupTimeout)
	defer cancel()

	price, err := s.priceSource.SpotPrice(ctx)
	if err != nil {
		log.WithError(err).Debug("hub: spot price lookup failed")
		s.reply(sub, errorReply{Kind: "error", Error: "price unavailable"})
		return
	}

	s.reply(sub, spotReply{Kind: "spot", Price: price})
}

func (s *Service) reply(sub *subscriber, msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	sub.send(payload)
}
