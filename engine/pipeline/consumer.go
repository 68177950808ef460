package pipeline

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/pkg/natsutil"
)

// EventSubject is the default NATS subject carrying storage events.
const EventSubject = "storage.events"

// Handler processes one storage event. *Pipeline implements it.
type Handler interface {
	Handle(ctx context.Context, ev domain.StorageEvent) (string, error)
}

// DeadLetter is published when an event fails. Raw holds the payload of a
// message that did not decode as an event.
type DeadLetter struct {
	Event domain.StorageEvent `json:"event"`
	Error string              `json:"error"`
	Raw   string              `json:"raw,omitempty"`
}

// DLQSubject returns the dead letter subject for subject.
func DLQSubject(subject string) string { return subject + ".dlq" }

// consumer adapts a Handler to NATS delivery.
type consumer struct {
	h          Handler
	log        *slog.Logger
	deadLetter func(context.Context, DeadLetter) error
}

func (c *consumer) process(ctx context.Context, ev domain.StorageEvent) {
	status, err := c.h.Handle(ctx, ev)
	if err != nil {
		c.log.Error("consumer: event failed", "error", err)
		dl := DeadLetter{Event: ev, Error: err.Error()}
		if err := c.deadLetter(ctx, dl); err != nil {
			c.log.Error("consumer: DLQ publish failed", "error", err)
		}
		return
	}
	if status == "" {
		c.log.Debug("consumer: empty event")
		return
	}
	c.log.Info("consumer: event handled", "status", status)
}

func (c *consumer) malformed(msg *nats.Msg, err error) {
	c.log.Warn("consumer: malformed event", "subject", msg.Subject, "error", err)
	dl := DeadLetter{Error: err.Error(), Raw: string(msg.Data)}
	if err := c.deadLetter(context.Background(), dl); err != nil {
		c.log.Error("consumer: DLQ publish failed", "error", err)
	}
}

// StartConsumer subscribes h to storage events on subject. With a non-empty
// queue the subscription joins that queue group. Failed events and messages
// that are not events are published to DLQSubject(subject).
func StartConsumer(nc *nats.Conn, subject, queue string, h Handler, log *slog.Logger) (*nats.Subscription, error) {
	if subject == "" {
		subject = EventSubject
	}
	if log == nil {
		log = slog.Default()
	}
	c := &consumer{
		h:   h,
		log: log,
		deadLetter: func(ctx context.Context, dl DeadLetter) error {
			return natsutil.Publish(ctx, nc, DLQSubject(subject), dl)
		},
	}
	opts := []natsutil.SubOption{natsutil.OnMalformed(c.malformed)}
	if queue != "" {
		opts = append(opts, natsutil.WithQueue(queue))
	}
	return natsutil.Subscribe(nc, subject, c.process, opts...)
}
