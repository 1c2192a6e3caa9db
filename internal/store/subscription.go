package store

import (
	"sync"

	"github.com/charlieadamsdev/tasktickr/internal/feed"
)

// subscriptionBuffer is how many undelivered events a subscriber may fall
// behind before the store gives up on continuity and signals a resync.
const subscriptionBuffer = 1024

// feedSubscription adapts the dispatcher's synchronous fan-out into the
// channel-based Subscription the engine consumes. A slow observer never
// blocks the store: if its buffer fills, pending continuity is abandoned
// and a resync is signaled instead, matching the at-least-once contract.
type feedSubscription struct {
	dispatcher *feed.Dispatcher
	subIDs     []string

	mu      sync.Mutex
	closed  bool
	events  chan feed.Event
	resyncs chan struct{}
}

// newFeedSubscription registers with the dispatcher for the given tables
// (all tables if none are named) and for resync signals.
func newFeedSubscription(d *feed.Dispatcher, tables ...feed.Table) *feedSubscription {
	s := &feedSubscription{
		dispatcher: d,
		events:     make(chan feed.Event, subscriptionBuffer),
		resyncs:    make(chan struct{}, 1),
	}

	if len(tables) == 0 {
		s.subIDs = append(s.subIDs, d.SubscribeAll(s.deliver))
	} else {
		for _, table := range tables {
			s.subIDs = append(s.subIDs, d.Subscribe(table, s.deliver))
		}
	}
	s.subIDs = append(s.subIDs, d.SubscribeResync(s.signalResync))

	return s
}

func (s *feedSubscription) Events() <-chan feed.Event { return s.events }

func (s *feedSubscription) Resyncs() <-chan struct{} { return s.resyncs }

func (s *feedSubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, id := range s.subIDs {
		s.dispatcher.Unsubscribe(id)
	}
	close(s.events)
	close(s.resyncs)
}

func (s *feedSubscription) deliver(e feed.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- e:
	default:
		// Buffer overflow: the gap is unrecoverable, force a refetch.
		s.signalResyncLocked()
	}
}

func (s *feedSubscription) signalResync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.signalResyncLocked()
}

func (s *feedSubscription) signalResyncLocked() {
	select {
	case s.resyncs <- struct{}{}:
	default:
	}
}
