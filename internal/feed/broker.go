package feed

import (
	"context"
	"sync"
)

// Broker is the in-process Bus. Delivery happens synchronously under
// the broker's read lock, so once Unsubscribe returns no further events
// reach that handler. Handlers must not call back into the broker.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[string]map[*brokerSub]struct{}
}

type brokerSub struct {
	broker     *Broker
	collection string
	key        string
	handler    func(Event)
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[string]map[*brokerSub]struct{})}
}

// Subscribe registers a handler for changes on one (collection, key).
func (b *Broker) Subscribe(collection, key string, handler func(Event)) (Subscription, error) {
	sub := &brokerSub{broker: b, collection: collection, key: key, handler: handler}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[collection]; !ok {
		b.subs[collection] = make(map[string]map[*brokerSub]struct{})
	}
	if _, ok := b.subs[collection][key]; !ok {
		b.subs[collection][key] = make(map[*brokerSub]struct{})
	}
	b.subs[collection][key][sub] = struct{}{}
	return sub, nil
}

// Publish delivers the event to every subscription on its key.
func (b *Broker) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[ev.Collection][ev.Key] {
		sub.handler(ev)
	}
	return nil
}

// Unsubscribe removes the registration. Safe to call more than once.
func (s *brokerSub) Unsubscribe() error {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if keys, ok := b.subs[s.collection]; ok {
		if subs, ok := keys[s.key]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(keys, s.key)
			}
		}
		if len(keys) == 0 {
			delete(b.subs, s.collection)
		}
	}
	return nil
}
