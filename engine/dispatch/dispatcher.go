// Package dispatch delivers one notification to one contact by subscribing
// the contact to a pre-provisioned topic and then publishing to that topic.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

// Messenger is the pub/sub collaborator. Subscribe must accept an endpoint
// that is already subscribed without failing.
type Messenger interface {
	Subscribe(ctx context.Context, topic string, protocol domain.Protocol, endpoint string) (string, error)
	Publish(ctx context.Context, topic, message string) (string, error)
}

// Config holds the dispatcher settings.
type Config struct {
	// TopicID names the pre-provisioned topic.
	TopicID string
	// Region qualifies the topic when set ("<region>.<topic>").
	Region string
	// Protocol is the channel kind used for every subscription.
	Protocol domain.Protocol
	// CallTimeout bounds each subscribe and publish call. Zero means no bound
	// beyond the caller's context.
	CallTimeout time.Duration
	// RatePerSecond caps dispatches per second. Zero disables the limit.
	RatePerSecond float64
	// Burst is the limiter bucket size (default 1).
	Burst int
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	TopicID:     "TrafficTicket",
	Protocol:    domain.ProtocolSMS,
	CallTimeout: 10 * time.Second,
}

// Topic returns the region-qualified topic identifier.
func (c Config) Topic() string {
	if c.Region == "" {
		return c.TopicID
	}
	return c.Region + "." + c.TopicID
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.TopicID == "" {
		return errors.New("dispatch: topic id is required")
	}
	if err := domain.ValidateProtocol(c.Protocol); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("dispatch: negative call timeout %s", c.CallTimeout)
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("dispatch: negative rate %g", c.RatePerSecond)
	}
	return nil
}

// Dispatcher runs the subscribe-then-publish protocol. It keeps no record of
// earlier subscriptions and never retries.
type Dispatcher struct {
	cfg       Config
	messenger Messenger
	limiter   *rate.Limiter
	log       *slog.Logger
}

// New creates a Dispatcher.
func New(cfg Config, m Messenger, log *slog.Logger) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("dispatch: messenger is required")
	}
	if log == nil {
		log = slog.Default()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Dispatcher{
		cfg:       cfg,
		messenger: m,
		limiter:   rate.NewLimiter(limit, burst),
		log:       log,
	}, nil
}

// Config returns the dispatcher configuration.
func (d *Dispatcher) Config() Config { return d.cfg }

// Dispatch subscribes contact to the topic and publishes message to it,
// returning the provider-assigned message id.
//
// A subscribe failure returns a *domain.DispatchError with StageSubscribe and
// Publish is never called. A publish failure returns StagePublish; the
// subscription made by the first step stays in place.
func (d *Dispatcher) Dispatch(ctx context.Context, contact, message string) (string, error) {
	topic := d.cfg.Topic()

	if err := d.limiter.Wait(ctx); err != nil {
		return "", &domain.DispatchError{Stage: domain.StageSubscribe, Contact: contact, Err: err}
	}

	subCtx, cancel := d.callContext(ctx)
	subID, err := d.messenger.Subscribe(subCtx, topic, d.cfg.Protocol, contact)
	cancel()
	if err != nil {
		return "", &domain.DispatchError{Stage: domain.StageSubscribe, Contact: contact, Err: err}
	}
	d.log.Debug("dispatch: subscribed", "topic", topic, "protocol", d.cfg.Protocol, "subscription", subID)

	pubCtx, cancel := d.callContext(ctx)
	msgID, err := d.messenger.Publish(pubCtx, topic, message)
	cancel()
	if err != nil {
		return "", &domain.DispatchError{Stage: domain.StagePublish, Contact: contact, Err: err}
	}
	d.log.Info("dispatch: published", "topic", topic, "message_id", msgID)
	return msgID, nil
}

func (d *Dispatcher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.cfg.CallTimeout)
}
