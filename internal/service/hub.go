package service

import (
	"sync"

	"github.com/akave-ai/hooklog/internal/metrics"
	"github.com/akave-ai/hooklog/internal/model"
)

const subscriberBuffer = 64

// Hub fans appended entries out to live tail subscribers. Publish never
// blocks: a subscriber whose buffer is full misses the entry. Delivery is
// best effort and follows publish order, not Seq order: concurrent appends
// can publish out of sequence, so subscribers reorder by Seq if they need to.
type Hub struct {
	mu      sync.Mutex
	subs    map[chan model.WebhookLogEntry]struct{}
	closed  bool
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{subs: map[chan model.WebhookLogEntry]struct{}{}, metrics: m}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; calling it more than once is safe.
func (h *Hub) Subscribe() (<-chan model.WebhookLogEntry, func()) {
	ch := make(chan model.WebhookLogEntry, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	h.metrics.SubscriberDelta(1)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			_, ok := h.subs[ch]
			if ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
			if ok {
				h.metrics.SubscriberDelta(-1)
			}
		})
	}
}

func (h *Hub) Publish(e model.WebhookLogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Len is the number of current subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber; later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	n := len(h.subs)
	for ch := range h.subs {
		close(ch)
	}
	h.subs = map[chan model.WebhookLogEntry]struct{}{}
	h.closed = true
	h.mu.Unlock()
	h.metrics.SubscriberDelta(-float64(n))
}
