// Package events is an in-process pub/sub bus for agent events (alerts,
// audit records, heal reports). Subscribers receive events in real time;
// an optional Redis publisher mirrors every event to a fleet channel so a
// central collector can observe many agents.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the agent.
const (
	TypeAlert  = "voltix.alert"
	TypeAudit  = "voltix.audit"
	TypeHeal   = "voltix.heal"
	TypeStatus = "voltix.status"
)

// Event is the envelope for everything published on the bus.
type Event struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Source string                 `json:"source"`
	Time   time.Time              `json:"time"`
	Data   map[string]interface{} `json:"data"`
}

// JSON serializes the event.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Emitter is the publishing side of the bus. Components that only emit
// (alert store, intent pipeline) depend on this narrow interface.
type Emitter interface {
	Emit(eventType, source string, data map[string]interface{})
}

// Sink receives a copy of every published event. The Redis publisher
// implements it; delivery is best effort.
type Sink interface {
	Deliver(event *Event)
}

// Bus fans events out to subscriber channels and any attached sinks.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string][]chan *Event // event type -> channels
	allSubs    []chan *Event
	sinks      []Sink
	bufferSize int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs:       make(map[string][]chan *Event),
		bufferSize: 100,
	}
}

// AttachSink registers a sink that receives every event.
func (b *Bus) AttachSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Subscribe returns a channel receiving events of the given types.
// With no types it receives everything.
func (b *Bus) Subscribe(eventTypes ...string) chan *Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *Event, b.bufferSize)
	if len(eventTypes) == 0 {
		b.allSubs = append(b.allSubs, ch)
	} else {
		for _, et := range eventTypes {
			b.subs[et] = append(b.subs[et], ch)
		}
	}
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (b *Bus) Unsubscribe(ch chan *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for et, subs := range b.subs {
		b.subs[et] = removeChan(subs, ch)
	}
	b.allSubs = removeChan(b.allSubs, ch)
	close(ch)
}

func removeChan(subs []chan *Event, ch chan *Event) []chan *Event {
	filtered := subs[:0]
	for _, s := range subs {
		if s != ch {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Publish delivers an event to all matching subscribers and to every sink.
// Slow subscribers are skipped rather than blocking the publisher.
func (b *Bus) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.Type] {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
	for _, ch := range b.allSubs {
		select {
		case ch <- event:
		default:
		}
	}
	for _, s := range b.sinks {
		s.Deliver(event)
	}
}

// Emit builds and publishes an event.
func (b *Bus) Emit(eventType, source string, data map[string]interface{}) {
	b.Publish(&Event{Type: eventType, Source: source, Data: data})
}

// SubscriberCount returns the number of active subscriber channels.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := len(b.allSubs)
	for _, subs := range b.subs {
		count += len(subs)
	}
	return count
}

// NopEmitter discards events. Useful as a default before wiring.
type NopEmitter struct{}

func (NopEmitter) Emit(string, string, map[string]interface{}) {}

var _ Emitter = (*Bus)(nil)
