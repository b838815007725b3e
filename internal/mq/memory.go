package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend is an in-process broker. Published messages are kept per
// channel and handed to any active subscriber.
type MemoryBackend struct {
	mu          sync.Mutex
	messages    map[string][]Message
	subscribers map[string][]chan Message
	closed      bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		messages:    make(map[string][]Message),
		subscribers: make(map[string][]chan Message),
	}
}

// Publish stores the message and fans it out to subscribers.
func (b *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", errors.New("memory backend closed")
	}

	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	b.messages[channel] = append(b.messages[channel], msg)
	for _, sub := range b.subscribers[channel] {
		select {
		case sub <- msg:
		default:
		}
	}
	return msg.ID, nil
}

// Subscribe delivers messages published after the call until ctx ends.
func (b *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}

	sub := make(chan Message, 64)
	b.mu.Lock()
	b.subscribers[channel] = append(b.subscribers[channel], sub)
	b.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-sub:
			_ = handler(ctx, msg)
		}
	}
}

// Messages returns what has been published on channel so far.
func (b *MemoryBackend) Messages(channel string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.messages[channel]))
	copy(out, b.messages[channel])
	return out
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
