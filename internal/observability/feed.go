package observability

import (
	"context"

	"pinmap-service/internal/feed"
)

// InstrumentBus counts every published change-feed event.
func InstrumentBus(inner feed.Bus) feed.Bus {
	return instrumentedBus{inner: inner}
}

type instrumentedBus struct {
	inner feed.Bus
}

func (b instrumentedBus) Publish(ctx context.Context, ev feed.Event) error {
	IncFeedEvent(ev.Collection, string(ev.Op))
	return b.inner.Publish(ctx, ev)
}

func (b instrumentedBus) Subscribe(collection, key string, handler func(feed.Event)) (feed.Subscription, error) {
	return b.inner.Subscribe(collection, key, handler)
}
