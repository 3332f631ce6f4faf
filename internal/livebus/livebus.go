// Package livebus is the in-process pub/sub fan-out fabric backing
// /ws/live: every connected dashboard subscriber gets a bounded outbound
// queue, and a broadcaster that finds the queue full drops the subscriber
// rather than blocking — this is what keeps the ingest-path latency
// contract intact even when a dashboard stalls.
package livebus

import (
	"sync"

	"github.com/corvidwatch/sentrywatch/internal/telemetry"
)

// queueSize bounds each subscriber's outbound channel.
const queueSize = 256

// Subscriber is one connected dashboard's outbound channel.
type Subscriber struct {
	id string
	ch chan []byte
}

// Recv returns the channel the subscriber should range over to receive
// broadcast events.
func (s *Subscriber) Recv() <-chan []byte {
	return s.ch
}

// Bus holds the set of active subscribers. Join/leave is by subscriber
// identity only — no replay, no backlog, no per-subscriber filtering.
// Delivery is best-effort and unordered across subscribers, but ordered
// within a single subscriber's channel (and therefore within its socket).
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string]*Subscriber)}
}

// Subscribe registers a new subscriber under id and returns it. Callers
// must eventually call Unsubscribe with the same id.
func (b *Bus) Subscribe(id string) *Subscriber {
	sub := &Subscriber{id: id, ch: make(chan []byte, queueSize)}

	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()

	telemetry.LiveBusSubscribers.Set(float64(b.Count()))
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// more than once for the same id.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		close(sub.ch)
	}
	telemetry.LiveBusSubscribers.Set(float64(b.Count()))
}

// Count returns the number of currently connected subscribers.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Broadcast sends payload to every connected subscriber. Broadcasting
// copies the subscriber set under a read lock, then sends outside the
// lock so a full queue never holds up other subscribers' delivery. A
// subscriber whose queue is full is dropped — its connection is closed by
// the handler goroutine when it observes the channel close.
func (b *Bus) Broadcast(payload []byte) {
	b.mu.RLock()
	subs := make([]*Subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- payload:
		default:
			telemetry.LiveBusDroppedTotal.Inc()
			b.Unsubscribe(s.id)
		}
	}
}
