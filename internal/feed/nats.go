package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// NATSBus is a Bus backed by NATS subjects, one subject per
// (collection, key) pair. Used when sessions of the same user may live
// on different instances.
type NATSBus struct {
	nc     *nats.Conn
	prefix string
}

// DialNATS connects to a NATS server.
func DialNATS(url, prefix string) (*NATSBus, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	if prefix == "" {
		prefix = "feed"
	}
	return &NATSBus{nc: nc, prefix: prefix}, nil
}

func (b *NATSBus) subject(collection, key string) string {
	return fmt.Sprintf("%s.%s.%s", b.prefix, collection, key)
}

// Publish marshals the event and publishes it on its subject.
func (b *NATSBus) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	if err := b.nc.Publish(b.subject(ev.Collection, ev.Key), data); err != nil {
		return fmt.Errorf("publish feed event: %w", err)
	}
	return nil
}

// Subscribe registers a handler on the (collection, key) subject.
func (b *NATSBus) Subscribe(collection, key string, handler func(Event)) (Subscription, error) {
	sub, err := b.nc.Subscribe(b.subject(collection, key), func(m *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			log.Printf("feed: dropping malformed event on %s: %v", m.Subject, err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s.%s: %w", collection, key, err)
	}
	return natsSub{sub: sub}, nil
}

// Close closes the underlying connection.
func (b *NATSBus) Close() {
	if b.nc != nil {
		b.nc.Close()
	}
}

type natsSub struct {
	sub *nats.Subscription
}

func (s natsSub) Unsubscribe() error {
	return s.sub.Unsubscribe()
}
