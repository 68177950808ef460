package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/wessley-plates/engine/dispatch"
	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/engine/pipeline"
	"github.com/WessleyAI/wessley-plates/engine/recognize"
	"github.com/WessleyAI/wessley-plates/engine/recognize/tesseract"
	"github.com/WessleyAI/wessley-plates/engine/records"
	"github.com/WessleyAI/wessley-plates/pkg/metrics"
	"github.com/WessleyAI/wessley-plates/pkg/repo"
	"github.com/WessleyAI/wessley-plates/pkg/resilience"
)

// components are the wired collaborators of one command run.
type components struct {
	log      *slog.Logger
	registry *metrics.Registry
	store    *records.Store
	pipeline *pipeline.Pipeline
	nc       *nats.Conn

	closers []func() error
}

// Close releases resources in reverse acquisition order.
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.log.Warn("close failed", "error", err)
		}
	}
	c.closers = nil
}

func (c *components) onClose(f func() error) { c.closers = append(c.closers, f) }

// connectNATS opens the shared connection once.
func (c *components) connectNATS(cfg natsConfig) (*nats.Conn, error) {
	if c.nc != nil {
		return c.nc, nil
	}
	nc, err := nats.Connect(cfg.URL, nats.Name(cmdName), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", cfg.URL, err)
	}
	c.nc = nc
	c.onClose(func() error { return nc.Drain() })
	c.log.Info("connected to NATS", "url", nc.ConnectedUrl())
	return nc, nil
}

// recordSource builds the configured record source.
func (a *App) recordSource(ctx context.Context, c *components) (records.Source, error) {
	cfg := a.config.Records
	switch cfg.Source {
	case "sample":
		return records.SampleSource(), nil
	case "file":
		src, err := records.NewFileSource(cfg.Path)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "sqlite":
		src, err := records.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		c.onClose(src.Close)
		return src, nil
	case "neo4j":
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URL, neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Password, ""))
		if err != nil {
			return nil, fmt.Errorf("neo4j driver: %w", err)
		}
		c.onClose(func() error { return driver.Close(context.Background()) })
		var opts []repo.Neo4jOption[domain.VehicleRecord]
		if cfg.Neo4j.Database != "" {
			opts = append(opts, repo.WithDatabase[domain.VehicleRecord](cfg.Neo4j.Database))
		}
		return records.NewNeo4jSource(driver, opts...), nil
	default:
		return nil, fmt.Errorf("unknown records source %q", cfg.Source)
	}
}

// openStore loads the record store.
func (a *App) openStore(ctx context.Context, c *components) error {
	src, err := a.recordSource(ctx, c)
	if err != nil {
		return err
	}
	var opts []records.Option
	if a.config.Records.AllowDuplicates {
		opts = append(opts, records.WithDuplicatePlates())
	}
	store, err := records.Open(ctx, src, opts...)
	if err != nil {
		return err
	}
	c.store = store
	c.registry.Gauge("platealert_records_loaded", "Vehicle records in the store.").Set(int64(store.Len()))
	c.log.Info("records loaded", "source", a.config.Records.Source, "count", store.Len())
	return nil
}

func (a *App) recognizer(c *components) (recognize.Recognizer, error) {
	cfg := a.config.Recognizer
	var r recognize.Recognizer
	switch cfg.Backend {
	case "tesseract":
		r = tesseract.New(recognize.DirStore{Root: a.config.Storage.Root}, cfg.Languages...)
	case "remote":
		remote, conn, err := recognize.DialRemote(cfg.Addr)
		if err != nil {
			return nil, err
		}
		c.onClose(conn.Close)
		r = remote
	case "static":
		r = recognize.Static(cfg.StaticText...)
	default:
		return nil, fmt.Errorf("unknown recognizer backend %q", cfg.Backend)
	}

	return r, nil
}

// recognizerBreaker returns the breaker guarding recognition, or nil when
// it is disabled.
func (a *App) recognizerBreaker(c *components) *resilience.Breaker {
	cfg := a.config.Recognizer
	if cfg.Breaker.FailThreshold <= 0 {
		return nil
	}
	open := c.registry.Gauge("platealert_recognizer_breaker_open", "1 while the recognizer circuit breaker rejects calls.")
	return resilience.NewBreaker(resilience.BreakerOpts{
		FailThreshold: cfg.Breaker.FailThreshold,
		Timeout:       cfg.Breaker.Timeout,
		OnStateChange: func(from, to resilience.State) {
			c.log.Warn("recognizer breaker state changed", "from", from.String(), "to", to.String())
			if to == resilience.StateOpen {
				open.Set(1)
			} else {
				open.Set(0)
			}
		},
	})
}

func (a *App) messenger(ctx context.Context, c *components) (dispatch.Messenger, error) {
	switch a.config.Dispatch.Messenger {
	case "memory":
		c.log.Warn("using in-memory messenger, notifications stay in this process")
		return dispatch.NewMemoryMessenger(), nil
	case "nats":
		nc, err := c.connectNATS(a.config.NATS)
		if err != nil {
			return nil, err
		}
		return dispatch.OpenNATSMessenger(ctx, nc, a.config.NATS.Bucket, a.config.NATS.NotifyPrefix)
	default:
		return nil, fmt.Errorf("unknown messenger %q", a.config.Dispatch.Messenger)
	}
}

// wire builds every component needed to handle events. On error, whatever
// was opened is closed.
func (a *App) wire(ctx context.Context) (_ *components, err error) {
	c := &components{log: a.log, registry: metrics.New()}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if err := a.openStore(ctx, c); err != nil {
		return nil, err
	}
	rec, err := a.recognizer(c)
	if err != nil {
		return nil, err
	}
	m, err := a.messenger(ctx, c)
	if err != nil {
		return nil, err
	}
	d, err := dispatch.New(dispatch.Config{
		TopicID:       a.config.Dispatch.Topic,
		Region:        a.config.Dispatch.Region,
		Protocol:      domain.Protocol(a.config.Dispatch.Protocol),
		CallTimeout:   a.config.Dispatch.CallTimeout,
		RatePerSecond: a.config.Dispatch.RatePerSecond,
		Burst:         a.config.Dispatch.Burst,
	}, m, a.log)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(pipeline.Deps{
		Recognizer: rec,
		Breaker:    a.recognizerBreaker(c),
		Records:    c.store,
		Notifier:   d,
		Metrics:    pipeline.NewMetrics(c.registry),
		Logger:     a.log,
	}, pipeline.Options{
		AllRecords:       a.config.Pipeline.AllRecords,
		Template:         domain.MessageTemplate(a.config.Pipeline.Template),
		RecognizeTimeout: a.config.Recognizer.Timeout,
		BucketOverride:   a.config.Pipeline.BucketOverride,
	})
	if err != nil {
		return nil, err
	}
	c.pipeline = p
	return c, nil
}

// isRecognitionError reports whether err carries a recognition failure.
func isRecognitionError(err error) bool {
	var re *domain.RecognitionError
	return errors.As(err, &re)
}
