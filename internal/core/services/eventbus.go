package services

import (
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	EventTypeCall   EventType = "call"
	EventTypeResult EventType = "result"
	EventTypeError  EventType = "error"
)

// SubscribeAll is the subscription key matching every tool.
const SubscribeAll = "*"

// Event is one dispatch telemetry record.
type Event struct {
	RequestID string
	Tool      string
	Type      EventType
	Data      string // JSON payload
	Timestamp int64
}

type EventBus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[string][]chan Event // Key: tool name or SubscribeAll
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[string][]chan Event),
	}
}

// Subscribe returns a channel receiving events for one tool, or for every
// tool when key is SubscribeAll.
func (b *EventBus) Subscribe(key string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100) // Buffer to prevent blocking publisher
	b.subs[key] = append(b.subs[key], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subscribers := b.subs[key]
		for i, sub := range subscribers {
			if sub == ch {
				close(ch)
				b.subs[key] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		if len(b.subs[key]) == 0 {
			delete(b.subs, key)
		}
	}

	return ch, unsub
}

// Publish fans the event out to the tool's subscribers and the wildcard
// subscribers. Slow consumers lose events rather than stalling dispatch.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, key := range []string{e.Tool, SubscribeAll} {
		for _, ch := range b.subs[key] {
			select {
			case ch <- e:
			default:
				b.logger.Warn("event bus channel full, dropping event", "tool", e.Tool, "request_id", e.RequestID)
			}
		}
	}
}
