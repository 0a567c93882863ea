package pipeline

import (
	"time"

	"github.com/pricepulse-network/pricepulse-daemon/internal/core/domain"
	"github.com/pricepulse-network/pricepulse-daemon/internal/core/ports"
	"github.com/pricepulse-network/pricepulse-daemon/pkg/feeder"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventQueueMaxSize is the capacity of the pipeline ingress channel shared by
// all feed adapters.
const EventQueueMaxSize = 100

// Opts defines the parameters needed for creating a pipeline service with
// NewService.
type Opts struct {
	Publisher ports.TickPublisher

	TickSize          decimal.Decimal
	AggregateTickSize decimal.Decimal
	AggregateFeeds    []string

	TriggerFeed    string
	ReferenceFeed  string
	Window         time.Duration
	UpperThreshold decimal.Decimal
	LowerThreshold decimal.Decimal
	Offset         decimal.Decimal

	// Now overrides the clock, tests only.
	Now func() time.Time
}

// Service runs the price-event pipeline: per-source change filtering, the
// optional multi-source aggregation and the imbalance trigger detection. All
// mutable pipeline state is owned by the single goroutine draining the event
// channel, adapters only ever hand events off to it.
type Service struct {
	eventChan chan feeder.Event
	publisher ports.TickPublisher

	tickSize   decimal.Decimal
	filters    map[string]*domain.Deadband
	aggregate  *domain.Aggregate
	aggregated map[string]bool

	triggerFeed   string
	referenceFeed string
	detector      *detector

	quitChan chan struct{}
	doneChan chan struct{}
	started  bool
}

func NewService(opts Opts) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	aggregated := make(map[string]bool)
	for _, source := range opts.AggregateFeeds {
		aggregated[source] = true
	}

	svc := &Service{
		eventChan:     make(chan feeder.Event, EventQueueMaxSize),
		publisher:     opts.Publisher,
		tickSize:      opts.TickSize,
		filters:       make(map[string]*domain.Deadband),
		aggregate:     domain.NewAggregate(opts.AggregateTickSize),
		aggregated:    aggregated,
		triggerFeed:   opts.TriggerFeed,
		referenceFeed: opts.ReferenceFeed,
		quitChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
	svc.detector = newDetector(detectorOpts{
		window:         opts.Window,
		upperThreshold: opts.UpperThreshold,
		lowerThreshold: opts.LowerThreshold,
		offset:         opts.Offset,
		syntheticTick:  opts.TickSize,
		now:            now,
		scheduleExpiry: svc.scheduleExpiry,
		fire:           svc.publishTick,
	})

	return svc
}

// EventChan is the ingress all feed adapters write their events to.
func (s *Service) EventChan() chan feeder.Event {
	return s.eventChan
}

func (s *Service) Start() {
	if s.started {
		return
	}
	s.started = true
	go s.run()
}

func (s *Service) Stop() {
	if !s.started {
		return
	}
	close(s.quitChan)
	<-s.doneChan
}

func (s *Service) run() {
	defer close(s.doneChan)
	log.Debug("pipeline started")

	for {
		select {
		case <-s.quitChan:
			log.Debug("pipeline stopped")
			return
		case event := <-s.eventChan:
			s.handleEvent(event)
		}
	}
}

func (s *Service) handleEvent(event feeder.Event) {
	switch e := event.(type) {
	case feeder.QuoteEvent:
		s.handleQuote(e)
	case feeder.DepthEvent:
		s.handleDepth(e)
	case feeder.ConnStateEvent:
		s.handleConnState(e)
	case expiryEvent:
		s.detector.expire(e.generation)
	}
}

func (s *Service) handleQuote(e feeder.QuoteEvent) {
	// The detector compares successive (bid, ask) pairs, so it sees every
	// quote of the trigger feed: the bid-keyed deadband below would blind it
	// to ask-only moves.
	if e.Source == s.triggerFeed {
		s.detector.onTriggerTick(e)
	}

	if !s.filterFor(e.Source).Observe(e.Bid) {
		return
	}

	if s.aggregated[e.Source] {
		if mean, ok := s.aggregate.Update(e.Source, e.Bid); ok {
			s.publishTick(domain.NewNormalTick(mean))
		}
		return
	}

	s.publishTick(domain.NewNormalTick(e.Bid))
}

func (s *Service) handleDepth(e feeder.DepthEvent) {
	if e.Source != s.referenceFeed {
		return
	}
	s.detector.onReferenceUpdate(e)
}

// handleConnState drops every piece of derived state keyed on the source, on
// both transitions: a disconnected source must stop contributing and a
// reconnected one must not resurface values from before the gap.
func (s *Service) handleConnState(e feeder.ConnStateEvent) {
	log.Debugf("pipeline: source %s is now connected=%v", e.Source, e.Connected)

	if filter, ok := s.filters[e.Source]; ok {
		filter.Reset()
	}
	s.aggregate.Remove(e.Source)
	if e.Source == s.triggerFeed || e.Source == s.referenceFeed {
		s.detector.reset(e.Source == s.referenceFeed)
	}
}

func (s *Service) filterFor(source string) *domain.Deadband {
	filter, ok := s.filters[source]
	if !ok {
		filter = domain.NewDeadband(s.tickSize)
		s.filters[source] = filter
	}
	return filter
}

func (s *Service) publishTick(tick domain.PriceTick) {
	s.publisher.PublishTick(tick)
}

// expiryEvent closes a trigger window from the timer side. It travels through
// the ingress channel so that the pipeline goroutine stays the only writer of
// detector state.
type expiryEvent struct {
	generation uint64
}

func (e expiryEvent) SourceID() string { return "" }

func (s *Service) scheduleExpiry(window time.Duration, generation uint64) {
	time.AfterFunc(window, func() {
		select {
		case s.eventChan <- expiryEvent{generation: generation}:
		default:
			// Queue full: the lazy deadline check on the next reference
			// update clears the trigger anyway.
		}
	})
}
