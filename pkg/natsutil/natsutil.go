// Package natsutil carries JSON values over NATS core and JetStream with
// OpenTelemetry trace context in the message headers.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier lets the OTel propagator read and write nats.Msg headers.
// NATS header keys are case sensitive and are stored as given.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = nats.Header{}
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if len(c.Header) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// JetStreamPublisher is the part of jetstream.JetStream PublishJS needs.
type JetStreamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Encode builds a message for subject holding v as JSON, with the span
// context of ctx injected into its headers.
func Encode[T any](ctx context.Context, subject string, v T) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("natsutil: encode %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return msg, nil
}

// Decode is the inverse of Encode: it returns the value in msg and a
// context carrying the sender's span context.
func Decode[T any](msg *nats.Msg) (context.Context, T, error) {
	var v T
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return ctx, v, fmt.Errorf("natsutil: decode %s: %w", msg.Subject, err)
	}
	return ctx, v, nil
}

// Publish sends v on subject over core NATS.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := Encode(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// PublishJS sends v to a JetStream subject and waits for the stream ack,
// which carries the sequence the stream assigned.
func PublishJS[T any](ctx context.Context, js JetStreamPublisher, subject string, v T) (*jetstream.PubAck, error) {
	msg, err := Encode(ctx, subject, v)
	if err != nil {
		return nil, err
	}
	return js.PublishMsg(ctx, msg)
}

type subConfig struct {
	queue       string
	onMalformed func(*nats.Msg, error)
}

// SubOption configures Subscribe.
type SubOption func(*subConfig)

// WithQueue joins the queue group so instances share the subject's work.
func WithQueue(queue string) SubOption {
	return func(c *subConfig) { c.queue = queue }
}

// OnMalformed receives messages that do not decode. Without it they are
// dropped.
func OnMalformed(f func(msg *nats.Msg, err error)) SubOption {
	return func(c *subConfig) { c.onMalformed = f }
}

// Subscribe calls handler with every value of type T arriving on subject.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T), opts ...SubOption) (*nats.Subscription, error) {
	var cfg subConfig
	for _, o := range opts {
		o(&cfg)
	}
	cb := Handler(handler, cfg.onMalformed)
	if cfg.queue != "" {
		return nc.QueueSubscribe(subject, cfg.queue, cb)
	}
	return nc.Subscribe(subject, cb)
}

// Handler adapts a typed handler to a nats.MsgHandler. onMalformed may be nil.
func Handler[T any](handler func(context.Context, T), onMalformed func(*nats.Msg, error)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, v, err := Decode[T](msg)
		if err != nil {
			if onMalformed != nil {
				onMalformed(msg, err)
			}
			return
		}
		handler(ctx, v)
	}
}
