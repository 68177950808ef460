package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

// Published is a message accepted by a MemoryMessenger.
type Published struct {
	ID      string
	Topic   string
	Message string
	At      time.Time
}

// MemoryMessenger is an in-process Messenger for local runs. Nothing leaves
// the process.
type MemoryMessenger struct {
	mu        sync.Mutex
	subs      map[string]map[string]domain.Protocol
	published []Published
}

// Compile-time interface check.
var _ Messenger = (*MemoryMessenger)(nil)

// NewMemoryMessenger creates an empty messenger.
func NewMemoryMessenger() *MemoryMessenger {
	return &MemoryMessenger{subs: make(map[string]map[string]domain.Protocol)}
}

// Subscribe records endpoint under topic; repeats are no-ops.
func (m *MemoryMessenger) Subscribe(ctx context.Context, topic string, protocol domain.Protocol, endpoint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byEndpoint, ok := m.subs[topic]
	if !ok {
		byEndpoint = make(map[string]domain.Protocol)
		m.subs[topic] = byEndpoint
	}
	byEndpoint[endpoint] = protocol
	return SubscriptionKey(topic, protocol, endpoint), nil
}

// Publish stores message and returns a fresh id.
func (m *MemoryMessenger) Publish(ctx context.Context, topic, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := Published{ID: uuid.NewString(), Topic: topic, Message: message, At: time.Now()}
	m.mu.Lock()
	m.published = append(m.published, p)
	m.mu.Unlock()
	return p.ID, nil
}

// Subscribers returns the endpoints subscribed to topic.
func (m *MemoryMessenger) Subscribers(topic string) map[string]domain.Protocol {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Protocol, len(m.subs[topic]))
	for k, v := range m.subs[topic] {
		out[k] = v
	}
	return out
}

// Published returns every accepted message in publish order.
func (m *MemoryMessenger) Published() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published(nil), m.published...)
}
