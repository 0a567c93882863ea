package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	sendQueueSize     = 32
	writeWait         = 5 * time.Second
	keepAliveInterval = 30 * time.Second

	// spotRequestRate caps the out-of-band price requests of one subscriber.
	spotRequestRate  = rate.Limit(1)
	spotRequestBurst = 3
)

// subscriber is one downstream connection handle. Connecting is the entire
// subscription action, so the handle is created on upgrade and destroyed on
// disconnect; the hub subscriber set is the only place owning it.
type subscriber struct {
	id   string
	conn *websocket.Conn

	sendChan    chan []byte
	quitChan    chan struct{}
	closeOnce   *sync.Once
	spotLimiter *rate.Limiter
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{
		id:          uuid.NewString(),
		conn:        conn,
		sendChan:    make(chan []byte, sendQueueSize),
		quitChan:    make(chan struct{}),
		closeOnce:   &sync.Once{},
		spotLimiter: rate.NewLimiter(spotRequestRate, spotRequestBurst),
	}
}

// send enqueues the payload for delivery, dropping it if the subscriber
// cannot keep up. It never blocks the caller.
func (s *subscriber) send(payload []byte) bool {
	select {
	case s.sendChan <- payload:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.quitChan)
	})
}

// writePump is the only writer of the connection. It drains the send queue
// and keeps the connection alive, and emits a close frame on the way out so
// the peer observes a clean disconnect.
func (s *subscriber) writePump() {
	keepAlive := time.NewTicker(keepAliveInterval)
	defer func() {
		keepAlive.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.quitChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			return
		case payload := <-s.sendChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.WithError(err).Debugf("subscriber %s: write failed", s.id)
				return
			}
		case <-keepAlive.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
