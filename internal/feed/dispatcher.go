package feed

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Handler is a function that handles a change feed event.
type Handler func(Event)

// ResyncHandler is a function called when a subscriber must drop its
// local state and refetch everything from the store.
type ResyncHandler func()

// subscription represents a registered event handler.
type subscription struct {
	id      string
	table   Table
	handler Handler
}

// Dispatcher fans out confirmed store mutations to all subscribers in
// arrival order. It allows the store, the reconciler, and any other
// observers to communicate without direct dependencies.
type Dispatcher struct {
	mu            sync.RWMutex
	subscriptions map[Table][]subscription
	resyncSubs    []subscription
	nextID        atomic.Uint64
}

// NewDispatcher creates a new change feed dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscriptions: make(map[Table][]subscription),
	}
}

// Subscribe registers a handler for one table's events.
// Returns a subscription ID that can be used to unsubscribe.
func (d *Dispatcher) Subscribe(table Table, handler Handler) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.generateID()
	d.subscriptions[table] = append(d.subscriptions[table], subscription{
		id:      id,
		table:   table,
		handler: handler,
	})
	return id
}

// SubscribeAll registers a handler for events from every table.
// Returns a subscription ID that can be used to unsubscribe.
func (d *Dispatcher) SubscribeAll(handler Handler) string {
	return d.Subscribe("*", handler)
}

// SubscribeResync registers a handler invoked when a reconnect requires a
// full state refetch. Returns a subscription ID.
func (d *Dispatcher) SubscribeResync(handler ResyncHandler) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.generateID()
	d.resyncSubs = append(d.resyncSubs, subscription{
		id:      id,
		handler: func(Event) { handler() },
	})
	return id
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (d *Dispatcher) Unsubscribe(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for table, subs := range d.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				d.subscriptions[table] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	for i, sub := range d.resyncSubs {
		if sub.id == id {
			d.resyncSubs = append(d.resyncSubs[:i], d.resyncSubs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers an event to all handlers subscribed to its table,
// then to wildcard handlers, each group in registration order. Handlers
// run synchronously so a single Publish preserves store emission order
// end to end. A panicking handler is logged and skipped.
func (d *Dispatcher) Publish(event Event) {
	d.mu.RLock()
	tableSubs := make([]subscription, len(d.subscriptions[event.Table]))
	copy(tableSubs, d.subscriptions[event.Table])
	wildcardSubs := make([]subscription, len(d.subscriptions["*"]))
	copy(wildcardSubs, d.subscriptions["*"])
	d.mu.RUnlock()

	for _, sub := range tableSubs {
		d.safeCall(sub.handler, event)
	}
	for _, sub := range wildcardSubs {
		d.safeCall(sub.handler, event)
	}
}

// SignalResync notifies every resync handler that continuity was lost and
// local state must be refetched. Called by the store after a transport
// drop; no gap replay is ever attempted.
func (d *Dispatcher) SignalResync() {
	d.mu.RLock()
	subs := make([]subscription, len(d.resyncSubs))
	copy(subs, d.resyncSubs)
	d.mu.RUnlock()

	for _, sub := range subs {
		d.safeCall(sub.handler, Event{})
	}
}

// safeCall invokes a handler and recovers from any panics, logging the
// stack so one misbehaving observer cannot block delivery to the rest.
func (d *Dispatcher) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: feed handler panicked for %s/%s event: %v\n%s",
				event.Table, event.Type, r, debug.Stack())
		}
	}()
	handler(event)
}

// generateID creates a unique subscription ID.
func (d *Dispatcher) generateID() string {
	return fmt.Sprintf("sub-%d", d.nextID.Add(1))
}

// Clear removes all subscriptions.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscriptions = make(map[Table][]subscription)
	d.resyncSubs = nil
}

// SubscriptionCount returns the total number of active subscriptions.
func (d *Dispatcher) SubscriptionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := len(d.resyncSubs)
	for _, subs := range d.subscriptions {
		count += len(subs)
	}
	return count
}
