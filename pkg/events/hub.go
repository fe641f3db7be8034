package events

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/metrics"
)

const DefaultBuffer = 64

// Query selects the events a subscription receives. Empty fields match everything.
type Query struct {
	Collections []Collection
	DocumentID  string
	RequesterID string
	VolunteerID string
}

// Matches reports whether e passes every filter set on q.
// A volunteer filter also matches a request the volunteer was just unassigned from.
func (q Query) Matches(e Event) bool {
	if len(q.Collections) > 0 && !slices.Contains(q.Collections, e.Collection) {
		return false
	}
	if q.DocumentID != "" && q.DocumentID != e.ID {
		return false
	}
	if q.RequesterID != "" && q.RequesterID != e.RequesterID {
		return false
	}
	if q.VolunteerID != "" && q.VolunteerID != e.VolunteerID && q.VolunteerID != e.PreviousVolunteerID {
		return false
	}
	return true
}

// Subscription delivers matching events on C until cancelled or dropped.
// C is closed in both cases.
type Subscription struct {
	C <-chan Event

	id    uint64
	query Query
	ch    chan Event
	hub   *Hub
}

// Cancel stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.hub.remove(s.id, false)
}

// Hub fans committed changes out to subscribers.
// Events are delivered in publish order; a subscriber whose buffer is full is dropped.
type Hub struct {
	mu      sync.Mutex
	subs    map[uint64]*Subscription
	nextID  uint64
	seq     uint64
	buffer  int
	closed  bool
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHub creates a hub; buffer is the per-subscriber queue length
func NewHub(logger *zap.Logger, m *metrics.Metrics, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:    make(map[uint64]*Subscription),
		buffer:  buffer,
		logger:  logger,
		metrics: m,
	}
}

// Subscribe registers a new subscription. On a closed hub the returned subscription is already closed.
func (h *Hub) Subscribe(q Query) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, id: h.nextID, query: q, ch: ch, hub: h}

	if h.closed {
		close(ch)
		return sub
	}

	h.subs[sub.id] = sub
	h.metrics.SubscriptionOpened()
	h.logger.Debug("Subscription opened",
		zap.Uint64("subscription_id", sub.id),
		zap.Int("active", len(h.subs)))
	return sub
}

// Publish delivers events to every matching subscriber
func (h *Hub) Publish(events ...Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for _, e := range events {
		h.seq++
		e.Seq = h.seq
		for id, sub := range h.subs {
			if !sub.query.Matches(e) {
				continue
			}
			select {
			case sub.ch <- e:
			default:
				h.logger.Warn("Dropping slow subscriber",
					zap.Uint64("subscription_id", id),
					zap.Uint64("seq", e.Seq),
					zap.String("collection", string(e.Collection)))
				h.removeLocked(id, true)
			}
		}
	}
}

// Len returns the number of open subscriptions
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close cancels every subscription and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id := range h.subs {
		h.removeLocked(id, false)
	}
}

func (h *Hub) remove(id uint64, dropped bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id, dropped)
}

func (h *Hub) removeLocked(id uint64, dropped bool) {
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.ch)
	h.metrics.SubscriptionClosed(dropped)
}
