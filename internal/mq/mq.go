// Package mq publishes registry change events through a pluggable broker.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a registry change. It doubles as the routing key.
type EventType string

const (
	EventRecordCreated  EventType = "record.created"
	EventRecordUpdated  EventType = "record.updated"
	EventRecordDeleted  EventType = "record.deleted"
	EventUserRegistered EventType = "user.registered"
)

const attrEventType = "event_type"

// Event is the JSON payload published after a successful save.
type Event struct {
	Type       EventType `json:"type"`
	Actor      string    `json:"actor,omitempty"`
	RecordID   int       `json:"record_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Affected   int       `json:"affected,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Message is a payload as it travels through a backend.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error asks the backend to
// redeliver it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by RabbitMQ, Pub/Sub and the in-memory broker.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ encodes events for a backend.
type MQ struct {
	backend Backend
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// PublishEvent stamps ev with the current time when unset, encodes it and
// publishes it on channel. It returns the broker's message id.
func (m *MQ) PublishEvent(ctx context.Context, channel string, ev Event) (string, error) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return m.backend.Publish(ctx, channel, data, map[string]string{attrEventType: string(ev.Type)})
}

// Subscribe consumes raw messages from channel until ctx ends.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

func (m *MQ) Close() error {
	return m.backend.Close()
}

// DecodeEvent parses a message published by PublishEvent. The type falls
// back to the event_type attribute when the body omits it.
func DecodeEvent(msg Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	if ev.Type == "" {
		ev.Type = EventType(msg.Attributes[attrEventType])
	}
	return ev, nil
}
