package sse

import (
	"sync"
)

// Event is one message for stream subscribers.
type Event struct {
	Topic string
	Event string
	Data  interface{}
}

// Hub fans events out to the open streams of a topic. Topics are opaque;
// callers use one per company and one per employee.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      16,
	}
}

// Subscribe registers a stream on every given topic. The returned cleanup
// must be called once the stream ends.
func (h *Hub) Subscribe(topics ...string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	for _, topic := range topics {
		if h.subscribers[topic] == nil {
			h.subscribers[topic] = make(map[chan Event]struct{})
		}
		h.subscribers[topic][ch] = struct{}{}
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, topic := range topics {
				delete(h.subscribers[topic], ch)
				if len(h.subscribers[topic]) == 0 {
					delete(h.subscribers, topic)
				}
			}
			close(ch)
		})
	}

	return ch, cleanup
}

// Publish sends an event to the subscribers of each topic. A stream
// subscribed to several of the topics receives it once. Full buffers drop
// the event rather than block the publisher.
func (h *Hub) Publish(event Event, topics ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[chan Event]struct{})
	for _, topic := range topics {
		for ch := range h.subscribers[topic] {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}

			e := event
			e.Topic = topic
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of open streams on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// TotalSubscribers returns the number of distinct open streams.
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	streams := make(map[chan Event]struct{})
	for _, subs := range h.subscribers {
		for ch := range subs {
			streams[ch] = struct{}{}
		}
	}
	return len(streams)
}
