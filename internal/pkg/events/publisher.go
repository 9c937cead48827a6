// internal/pkg/events/publisher.go
package events

import (
	"context"
	"sync"
	"time"
)

// Event is the envelope published for every domain change
type Event struct {
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregateId"`
	UserID      string         `json:"userId,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
}

// Publisher delivers domain events to a topic
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(context.Context, string, string, Event) error { return nil }

// Close implements Publisher
func (NoopPublisher) Close() error { return nil }

// Published is a single event captured by Recorder
type Published struct {
	Topic string
	Key   string
	Event Event
}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Published
	Err    error
}

// Publish implements Publisher
func (r *Recorder) Publish(_ context.Context, topic, key string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Published{Topic: topic, Key: key, Event: event})
	return nil
}

// Close implements Publisher
func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the event types in publish order
func (r *Recorder) Types() []string {
	events := r.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Event.Type
	}
	return types
}
