package feeder

import (
	"bytes"
	"compress/gzip"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultReconnectDelay = 5 * time.Second
	DefaultPingInterval   = 15 * time.Second
)

// Opts defines the parameters needed for creating a feed adapter with
// NewService.
type Opts struct {
	Driver         Driver
	EventChan      chan<- Event
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// Service owns one upstream exchange connection and normalizes its messages
// into events for the pipeline. The connection lifecycle is
// DISCONNECTED -> CONNECTING -> CONNECTED, falling back to DISCONNECTED on
// any transport error. Reconnection is retried forever on a fixed delay.
type Service struct {
	driver         Driver
	eventChan      chan<- Event
	reconnectDelay time.Duration
	pingInterval   time.Duration

	stateLock *sync.RWMutex
	state     ConnState

	quitChan chan struct{}
	doneChan chan struct{}
	started  bool
}

func NewService(opts Opts) *Service {
	reconnectDelay := opts.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	pingInterval := opts.PingInterval
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}

	return &Service{
		driver:         opts.Driver,
		eventChan:      opts.EventChan,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		stateLock:      &sync.RWMutex{},
		state:          Disconnected,
		quitChan:       make(chan struct{}),
		doneChan:       make(chan struct{}),
	}
}

// Start runs the connection lifecycle in background.
func (s *Service) Start() {
	if s.started {
		return
	}
	s.started = true
	go s.run()
}

// Stop terminates the adapter and actively closes the connection so the peer
// observes a clean disconnect.
func (s *Service) Stop() {
	if !s.started {
		return
	}
	close(s.quitChan)
	<-s.doneChan
}

func (s *Service) State() ConnState {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()
	return s.state
}

func (s *Service) run() {
	defer close(s.doneChan)

	for {
		if s.stopped() {
			return
		}

		s.setState(Connecting)
		conn, err := s.connect()
		if err != nil {
			log.WithError(err).Warnf(
				"%s: cannot connect, retrying in %s",
				s.driver.Name(), s.reconnectDelay,
			)
			s.setState(Disconnected)
			if !s.sleep(s.reconnectDelay) {
				return
			}
			continue
		}

		s.setState(Connected)
		log.Debugf("%s: connected", s.driver.Name())
		s.eventChan <- ConnStateEvent{Source: s.driver.Name(), Connected: true}

		s.readLoop(conn)

		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		conn.Close()
		s.setState(Disconnected)
		s.eventChan <- ConnStateEvent{Source: s.driver.Name(), Connected: false}

		if s.stopped() {
			return
		}

		log.Debugf(
			"%s: connection dropped, reconnecting in %s",
			s.driver.Name(), s.reconnectDelay,
		)
		if !s.sleep(s.reconnectDelay) {
			return
		}
	}
}

func (s *Service) connect() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(s.driver.URL(), nil)
	if err != nil {
		return nil, err
	}

	msg, err := s.driver.SubscribeMessage()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// readLoop pumps messages from the connection until a transport error, a
// remote close or a Stop. The venue ping, if any, is written from here too so
// the connection has a single writer.
func (s *Service) readLoop(conn *websocket.Conn) {
	msgChan := make(chan []byte)
	errChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}
			select {
			case msgChan <- msg:
			case <-done:
				return
			}
		}
	}()

	var pingChan <-chan time.Time
	if _, ok := s.driver.PingMessage(); ok {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		pingChan = ticker.C
	}

	for {
		select {
		case <-s.quitChan:
			return
		case <-pingChan:
			ping, _ := s.driver.PingMessage()
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				log.WithError(err).Debugf("%s: cannot send ping", s.driver.Name())
				return
			}
		case err := <-errChan:
			if websocket.IsUnexpectedCloseError(err, WebSocketCloseErrors...) {
				log.WithError(err).Warnf(
					"%s: connection dropped unexpectedly", s.driver.Name(),
				)
			}
			return
		case msg := <-msgChan:
			if reply, ok := s.handleMessage(msg); ok {
				if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
					log.WithError(err).Debugf(
						"%s: cannot answer control frame", s.driver.Name(),
					)
					return
				}
			}
		}
	}
}

// handleMessage decodes one raw frame and forwards the resulting event, if
// any. Malformed or irrelevant messages are silently dropped. The returned
// payload, if any, must be written back to the venue.
func (s *Service) handleMessage(msg []byte) ([]byte, bool) {
	if s.driver.Compressed() {
		if inflated, err := gunzip(msg); err == nil {
			msg = inflated
		}
	}

	if reply, ok := s.driver.ControlReply(msg); ok {
		return reply, true
	}

	event := s.driver.Parse(msg)
	if event == nil {
		return nil, false
	}

	// Best-effort handoff: never block on a slow pipeline.
	select {
	case s.eventChan <- event:
	default:
		log.Debugf("%s: pipeline busy, dropping event", s.driver.Name())
	}
	return nil, false
}

func (s *Service) setState(state ConnState) {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	s.state = state
}

func (s *Service) stopped() bool {
	select {
	case <-s.quitChan:
		return true
	default:
		return false
	}
}

// sleep waits for the given delay, returning false if the service is stopped
// in the meantime.
func (s *Service) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.quitChan:
		return false
	case <-timer.C:
		return true
	}
}

func gunzip(buf []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
