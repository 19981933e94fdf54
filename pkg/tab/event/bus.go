package event

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type Handler func(ctx context.Context, event *Event)

// Bus is an in-process publish/subscribe fan-out. Delivery is asynchronous
// and per-handler failures are isolated, so a slow or panicking subscriber
// can never stall a publisher.
type Bus struct {
	log *logrus.Entry

	mu          sync.RWMutex
	subscribers map[Type][]Handler
}

func NewBus() *Bus {
	return &Bus{
		log:         logrus.StandardLogger().WithField("type", "tab/event/bus"),
		subscribers: make(map[Type][]Handler),
	}
}

// Subscribe registers a handler for one or more event types. There is no
// unsubscribe; subscriptions live for the life of the bus.
func (b *Bus) Subscribe(handler Handler, types ...Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish delivers the event to every subscriber of its type, each on its
// own goroutine.
func (b *Bus) Publish(ctx context.Context, event *Event) {
	b.mu.RLock()
	handlers := b.subscribers[event.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		go b.deliver(ctx, handler, event)
	}
}

func (b *Bus) deliver(ctx context.Context, handler Handler, event *Event) {
	log := b.log.WithFields(logrus.Fields{
		"method":     "deliver",
		"event_type": event.Type.String(),
		"event_id":   event.Id,
	})

	defer func() {
		if r := recover(); r != nil {
			log.Warnf("subscriber panicked: %v", r)
		}
	}()

	handler(ctx, event)
}
