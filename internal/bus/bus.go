package bus

import "sync"

// Topic names a signal consumers can subscribe to.
type Topic string

const (
	TopicOrdersChanged    Topic = "orders.changed"
	TopicMenuChanged      Topic = "menu.changed"
	TopicSettingsChanged  Topic = "settings.changed"
	TopicMarketingChanged Topic = "marketing.changed"
	TopicStorageFull      Topic = "storage.full"
)

// Handler receives a published topic.
type Handler func(topic Topic)

// Bus is a process-wide synchronous publish/subscribe service. Publish runs
// every registered handler on the caller's stack, in registration order.
// There is no queuing and no async dispatch: when Publish returns, every
// consumer has seen the event.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[Topic][]*Subscription
}

// Subscription is one registered handler. Consumers must call Unsubscribe on
// teardown: handlers capture view state by reference, and a stale handler
// keeps acting on a dead view.
type Subscription struct {
	id      int
	topic   Topic
	handler Handler
	bus     *Bus
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]*Subscription)}
}

// Subscribe registers a handler for a topic and returns its subscription.
func (b *Bus) Subscribe(topic Topic, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, topic: topic, handler: handler, bus: b}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[s.topic]
	for i, sub := range subs {
		if sub.id == s.id {
			b.subs[s.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	s.bus = nil
}

// Publish invokes all current subscribers of the topic, synchronously, in
// registration order.
func (b *Bus) Publish(topic Topic) {
	b.mu.Lock()
	subs := make([]*Subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.Unlock()

	for _, sub := range subs {
		sub.handler(topic)
	}
}
