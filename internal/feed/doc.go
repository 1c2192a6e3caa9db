// Package feed provides the change feed dispatcher: a synchronous pub-sub
// fan-out of confirmed store mutations to every subscribed observer.
//
// The dispatcher delivers events in the order the authoritative store
// emits them. It never reorders, batches, or deduplicates; telling an echo
// of an observer's own optimistic mutation apart from a foreign change is
// the reconciler's job. Delivery is at-least-once from the perspective of
// a reconnecting subscriber: after a transport drop the dispatcher signals
// a resync rather than replaying the gap.
//
// # Thread Safety
//
// [Dispatcher] is safe for concurrent use. Handlers are called
// synchronously in registration order and are protected against panics; a
// panicking handler cannot block delivery to the others.
package feed
