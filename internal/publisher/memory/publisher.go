// Package memory keeps published events in process. It backs tests and
// local runs where no Pub/Sub topic is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Event is one published notification with its JSON body, as a Pub/Sub
// subscriber would receive it.
type Event struct {
	ID    string
	Topic string
	Data  []byte
}

// Publisher records events in publish order.
type Publisher struct {
	mu     sync.Mutex
	events []Event
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish encodes payload as JSON and records it under topic.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("memory-%d", len(p.events)+1)
	p.events = append(p.events, Event{ID: id, Topic: topic, Data: data})
	return id, nil
}

// Events returns the events published to topic, or all events when topic is empty.
func (p *Publisher) Events(topic string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, 0, len(p.events))
	for _, e := range p.events {
		if topic == "" || e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
