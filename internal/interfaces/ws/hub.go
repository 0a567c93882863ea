package ws

import (
	"sync"
)

// hub tracks the set of live subscriber connections. Membership in the single
// broadcast topic is exactly the existence of the connection, there is no
// separate subscription registry to keep consistent.
type hub struct {
	lock        *sync.RWMutex
	subscribers map[string]*subscriber
}

func newHub() *hub {
	return &hub{
		lock:        &sync.RWMutex{},
		subscribers: make(map[string]*subscriber),
	}
}

func (h *hub) add(sub *subscriber) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.subscribers[sub.id] = sub
}

func (h *hub) remove(id string) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.subscribers, id)
}

func (h *hub) len() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.subscribers)
}

// broadcast delivers the payload, already encoded once, to a snapshot of the
// current subscriber set. A subscriber connecting or dropping mid-publish is
// not affected and cannot affect the others; a slow subscriber has the
// payload dropped rather than buffered without bound.
func (h *hub) broadcast(payload []byte) {
	for _, sub := range h.snapshot() {
		sub.send(payload)
	}
}

func (h *hub) snapshot() []*subscriber {
	h.lock.RLock()
	defer h.lock.RUnlock()

	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

func (h *hub) closeAll() {
	for _, sub := range h.snapshot() {
		sub.close()
	}
}
