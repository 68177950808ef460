package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/pkg/natsutil"
)

// DefaultSubjectPrefix is the JetStream subject prefix for notifications.
const DefaultSubjectPrefix = "notify"

// KeyValuePutter is the subset of jetstream.KeyValue used for subscriptions.
type KeyValuePutter interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// Subscription is the value stored for each registered endpoint.
type Subscription struct {
	Topic     string          `json:"topic"`
	Protocol  domain.Protocol `json:"protocol"`
	Endpoint  string          `json:"endpoint"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Notification is the payload published to a topic subject.
type Notification struct {
	Topic       string    `json:"topic"`
	Message     string    `json:"message"`
	PublishedAt time.Time `json:"published_at"`
}

// NATSMessenger keeps subscriptions in a JetStream key-value bucket and
// publishes notifications to a JetStream stream. Both the bucket and the
// stream are provisioned outside this service.
type NATSMessenger struct {
	js            natsutil.JetStreamPublisher
	kv            KeyValuePutter
	subjectPrefix string
	now           func() time.Time
}

// Compile-time interface check.
var _ Messenger = (*NATSMessenger)(nil)

// NewNATSMessenger creates a messenger over an existing publisher and bucket.
func NewNATSMessenger(js natsutil.JetStreamPublisher, kv KeyValuePutter, subjectPrefix string) *NATSMessenger {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &NATSMessenger{js: js, kv: kv, subjectPrefix: subjectPrefix, now: time.Now}
}

// OpenNATSMessenger binds to the subscription bucket on nc's JetStream.
func OpenNATSMessenger(ctx context.Context, nc *nats.Conn, bucket, subjectPrefix string) (*NATSMessenger, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("dispatch: jetstream: %w", err)
	}
	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("dispatch: subscription bucket %s: %w", bucket, err)
	}
	return NewNATSMessenger(js, kv, subjectPrefix), nil
}

// Subscribe registers endpoint under topic. The key is derived from the
// endpoint so repeating the call overwrites the same entry.
func (m *NATSMessenger) Subscribe(ctx context.Context, topic string, protocol domain.Protocol, endpoint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := SubscriptionKey(topic, protocol, endpoint)
	data, err := json.Marshal(Subscription{
		Topic:     topic,
		Protocol:  protocol,
		Endpoint:  endpoint,
		UpdatedAt: m.now().UTC(),
	})
	if err != nil {
		return "", err
	}
	if _, err := m.kv.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("put subscription %s: %w", key, err)
	}
	return key, nil
}

// Publish sends message to the topic subject and returns "<stream>-<seq>".
func (m *NATSMessenger) Publish(ctx context.Context, topic, message string) (string, error) {
	subject := m.subjectPrefix + "." + sanitizeToken(topic)
	ack, err := natsutil.PublishJS(ctx, m.js, subject, Notification{
		Topic:       topic,
		Message:     message,
		PublishedAt: m.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", subject, err)
	}
	return fmt.Sprintf("%s-%d", ack.Stream, ack.Sequence), nil
}

// SubscriptionKey builds a key-value key for an endpoint. Endpoints such as
// "+14253652945" or "a@b.com" contain characters keys may not hold, so the
// endpoint is replaced by its name-based UUID.
func SubscriptionKey(topic string, protocol domain.Protocol, endpoint string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(protocol)+":"+endpoint))
	return sanitizeToken(topic) + "." + string(protocol) + "." + id.String()
}

// sanitizeToken keeps characters valid in both subjects and keys.
func sanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
