// Package event is a small in-process publish/subscribe bus used to fan out
// theme and preference change notifications.
package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topics published inside palette.
const (
	TopicThemeChanged       = "theme.changed"
	TopicPreferencesUpdated = "preferences.updated"
)

// Event is a single notification. The Payload type depends on Topic.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// Handler receives events from the bus.
type Handler func(ctx context.Context, e Event)

// Publisher is the producer side of a Bus.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	PublishAsync(ctx context.Context, e Event)
}

var _ Publisher = (*Bus)(nil)

// Bus dispatches events to topic and wildcard subscribers.
// Publish runs handlers in the caller's goroutine; PublishAsync gives each
// handler its own goroutine. A panicking handler is logged and skipped.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	allSubs  []entry
	nextID   uint64
	logger   *zap.Logger
}

type entry struct {
	id      uint64
	handler Handler
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[string][]entry),
		logger:   logger,
	}
}

// Publish delivers e synchronously. A zero Timestamp is set to now.
func (b *Bus) Publish(ctx context.Context, e Event) {
	e = stamp(e)
	for _, h := range b.snapshot(e.Topic) {
		b.safeCall(ctx, h, e)
	}
}

// PublishAsync delivers e without waiting for handlers.
func (b *Bus) PublishAsync(ctx context.Context, e Event) {
	e = stamp(e)
	for _, h := range b.snapshot(e.Topic) {
		go b.safeCall(ctx, h, e)
	}
}

// Subscribe registers handler for topic and returns its unsubscribe func.
func (b *Bus) Subscribe(topic string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[topic] = append(b.handlers[topic], entry{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[topic] = remove(b.handlers[topic], id)
	}
}

// SubscribeAll registers handler for every topic.
func (b *Bus) SubscribeAll(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.allSubs = append(b.allSubs, entry{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.allSubs = remove(b.allSubs, id)
	}
}

// snapshot copies the handlers for topic so dispatch runs without the lock.
func (b *Bus) snapshot(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.handlers[topic])+len(b.allSubs))
	for _, e := range b.handlers[topic] {
		out = append(out, e.handler)
	}
	for _, e := range b.allSubs {
		out = append(out, e.handler)
	}
	return out
}

func (b *Bus) safeCall(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", e.Topic),
				zap.String("source", e.Source),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, e)
}

func stamp(e Event) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return e
}

func remove(entries []entry, id uint64) []entry {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i:i], entries[i+1:]...)
		}
	}
	return entries
}
