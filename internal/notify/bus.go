// Package notify is the in-process fan-out bus connecting background
// monitors to delivery surfaces. Producers publish without blocking;
// a subscriber that stops draining loses notifications rather than
// stalling the sampling loops.
package notify

import (
	"log/slog"
	"sync"
)

// Topics emitted by the built-in producers.
const (
	TopicMouseMove   = "global-mouse-move"
	TopicMouseButton = "global-mouse-button"
	TopicBehavior    = "behavior-analysis"
	TopicReminderDue = "reminder-due"
)

// Notification is a single published message. Payload is any
// JSON-marshalable value; subscribers serialize it at the edge.
type Notification struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

type subscriber struct {
	ch     chan Notification
	topics map[string]bool // empty means all topics
}

// Bus fans notifications out to subscribers. Safe for concurrent use.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	logger *slog.Logger
}

func New() *Bus {
	return &Bus{
		subs:   make(map[int]*subscriber),
		logger: slog.Default().With("component", "notify"),
	}
}

// Subscribe registers a listener with the given channel buffer. With no
// topics it receives everything; otherwise only the named topics. The
// returned cancel func unregisters and closes the channel; it is safe
// to call more than once.
func (b *Bus) Subscribe(buffer int, topics ...string) (<-chan Notification, func()) {
	sub := &subscriber{
		ch:     make(chan Notification, buffer),
		topics: make(map[string]bool, len(topics)),
	}
	for _, t := range topics {
		sub.topics[t] = true
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers to every matching subscriber, dropping for any whose
// buffer is full.
func (b *Bus) Publish(topic string, payload any) {
	n := Notification{Topic: topic, Payload: payload}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if len(sub.topics) > 0 && !sub.topics[topic] {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			b.logger.Debug("dropping notification for slow subscriber", "topic", topic)
		}
	}
}

// SubscriberCount reports the current number of registered listeners.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
