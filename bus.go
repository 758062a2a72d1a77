package bookshelf

import "fmt"

// Signal identifies the kind of event travelling on a Bus.
type Signal int

const (
	// StateMutated is raised after a mutation has completed.
	StateMutated Signal = iota + 1
	// StorageSynced requests a reload from persistent storage.
	StorageSynced
)

func (s Signal) String() string {
	switch s {
	case StateMutated:
		return "state-mutated"
	case StorageSynced:
		return "storage-synced"
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// Event is delivered to subscribers.
// Collection and Counts are populated for StateMutated.
type Event struct {
	Signal     Signal
	Collection Collection
	Counts     Counts
}

// Handler consumes events.
type Handler func(Event)

// Bus dispatches events synchronously to subscribers in the order they
// subscribed. Handlers may publish; nested events are delivered before
// Publish returns.
type Bus struct {
	next     int
	handlers map[Signal][]subscription
}

type subscription struct {
	id int
	fn Handler
}

// Subscribe fn to sig. The returned func removes the subscription.
func (b *Bus) Subscribe(sig Signal, fn Handler) (unsubscribe func()) {
	if b.handlers == nil {
		b.handlers = make(map[Signal][]subscription)
	}
	b.next++
	id := b.next
	b.handlers[sig] = append(b.handlers[sig], subscription{id: id, fn: fn})
	return func() {
		subs := b.handlers[sig]
		for ii := range subs {
			if subs[ii].id == id {
				b.handlers[sig] = append(subs[:ii:ii], subs[ii+1:]...)
				return
			}
		}
	}
}

// Publish e to every subscriber of e.Signal.
func (b *Bus) Publish(e Event) {
	// Copy so that handlers may (un)subscribe while we iterate.
	subs := append([]subscription(nil), b.handlers[e.Signal]...)
	for _, s := range subs {
		s.fn(e)
	}
}
