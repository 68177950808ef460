package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/WessleyAI/wessley-plates/engine/dispatch"
	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/engine/pipeline"
	"github.com/WessleyAI/wessley-plates/pkg/resilience"
)

// appConfig is the full service configuration. Keys are the lower-cased field
// names, so PLATEALERT_DISPATCH_CALLTIMEOUT sets dispatch.calltimeout.
type appConfig struct {
	Verbosity  int
	Log        logConfig
	NATS       natsConfig
	Dispatch   dispatchConfig
	Records    recordsConfig
	Recognizer recognizerConfig
	Storage    storageConfig
	Pipeline   pipelineConfig
	HTTP       httpConfig
}

type logConfig struct {
	// Format is "json" or "text".
	Format string
}

type natsConfig struct {
	URL string
	// Subject carries storage events; empty disables the consumer.
	Subject string
	Queue   string
	// Bucket is the key-value bucket holding subscriptions.
	Bucket string
	// NotifyPrefix is the JetStream subject prefix for notifications.
	NotifyPrefix string
}

type dispatchConfig struct {
	// Messenger is "nats" or "memory".
	Messenger     string
	Topic         string
	Region        string
	Protocol      string
	CallTimeout   time.Duration
	RatePerSecond float64
	Burst         int
}

type recordsConfig struct {
	// Source is "sample", "file", "sqlite" or "neo4j".
	Source          string
	Path            string
	AllowDuplicates bool
	Neo4j           neo4jConfig
}

type neo4jConfig struct {
	URL      string
	User     string
	Password string
	Database string
}

type recognizerConfig struct {
	// Backend is "tesseract", "remote" or "static".
	Backend    string
	Addr       string
	Languages  []string
	StaticText []string
	Timeout    time.Duration
	Breaker    breakerConfig
}

type breakerConfig struct {
	// FailThreshold of zero disables the breaker.
	FailThreshold int
	Timeout       time.Duration
}

type storageConfig struct {
	Root   string
	Watch  bool
	Settle time.Duration
}

type pipelineConfig struct {
	AllRecords     bool
	Template       string
	BucketOverride string
}

type httpConfig struct {
	Addr         string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func defaultConfig() appConfig {
	return appConfig{
		Log: logConfig{Format: "json"},
		NATS: natsConfig{
			URL:          "nats://localhost:4222",
			Subject:      pipeline.EventSubject,
			Bucket:       "PLATE_SUBSCRIPTIONS",
			NotifyPrefix: dispatch.DefaultSubjectPrefix,
		},
		Dispatch: dispatchConfig{
			Messenger:   "nats",
			Topic:       dispatch.DefaultConfig.TopicID,
			Protocol:    string(dispatch.DefaultConfig.Protocol),
			CallTimeout: dispatch.DefaultConfig.CallTimeout,
		},
		Records: recordsConfig{Source: "sample"},
		Recognizer: recognizerConfig{
			Backend:   "tesseract",
			Addr:      "localhost:50052",
			Languages: []string{"eng"},
			Timeout:   pipeline.DefaultOptions.RecognizeTimeout,
			Breaker: breakerConfig{
				FailThreshold: resilience.DefaultBreakerOpts.FailThreshold,
				Timeout:       resilience.DefaultBreakerOpts.Timeout,
			},
		},
		Storage:  storageConfig{Root: "./data", Settle: pipeline.DefaultSettle},
		Pipeline: pipelineConfig{Template: string(domain.TemplateRecord)},
		HTTP: httpConfig{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}
}

// setDefaults registers every key of c on vip so that environment variables
// and flags can override keys absent from the config file.
func setDefaults(vip *viper.Viper, c appConfig) error {
	var m map[string]any
	if err := mapstructure.Decode(c, &m); err != nil {
		return err
	}
	for k, v := range flatten("", m) {
		vip.SetDefault(k, v)
	}
	return nil
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := v.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// initViperConfig reads the config file, then binds PLATEALERT_* variables.
func initViperConfig(cmdName string, cmd *cobra.Command, vip *viper.Viper) error {
	if v, err := cmd.Flags().GetString("config"); err == nil && v != "" {
		vip.SetConfigFile(v)
	} else {
		vip.SetConfigName(cmdName)
		vip.AddConfigPath(".")
		vip.AddConfigPath("/etc/" + cmdName)
		if binPath, err := os.Executable(); err != nil {
			slog.Warn("Failed to get current executable path, not adding it as a config dir", "error", err)
		} else {
			vip.AddConfigPath(filepath.Dir(binPath))
		}
	}
	if err := vip.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return fmt.Errorf("invalid configuration file: %w", err)
		}
		slog.Debug("No configuration file, using defaults, environment and flags")
	} else {
		slog.Debug("Using configuration file", "file", vip.ConfigFileUsed())
	}

	vip.SetEnvPrefix(cmdName)
	vip.AutomaticEnv()

	// Bind every matching variable explicitly so Unmarshal sees nested keys.
	prefix := strings.ToUpper(strings.ReplaceAll(cmdName, "-", "_")) + "_"
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, prefix) {
			continue
		}
		name, _, _ := strings.Cut(e, "=")
		k := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, prefix), "_", "."))
		if err := vip.BindEnv(k, name); err != nil {
			return fmt.Errorf("could not bind environment variable: %w", err)
		}
	}
	return nil
}

// decodeConfig unmarshals vip into a config, accepting duration strings and
// comma-separated lists.
func decodeConfig(vip *viper.Viper) (appConfig, error) {
	var c appConfig
	err := vip.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return appConfig{}, fmt.Errorf("unable to decode configuration: %w", err)
	}
	return c, c.validate()
}

func (c appConfig) validate() error {
	var errs []error
	oneOf := func(field, v string, allowed ...string) {
		for _, a := range allowed {
			if v == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: %q is not one of %s", field, v, strings.Join(allowed, ", ")))
	}
	oneOf("log.format", c.Log.Format, "json", "text")
	oneOf("dispatch.messenger", c.Dispatch.Messenger, "nats", "memory")
	oneOf("dispatch.protocol", c.Dispatch.Protocol, string(domain.ProtocolSMS), string(domain.ProtocolEmail))
	oneOf("records.source", c.Records.Source, "sample", "file", "sqlite", "neo4j")
	oneOf("recognizer.backend", c.Recognizer.Backend, "tesseract", "remote", "static")
	oneOf("pipeline.template", c.Pipeline.Template, string(domain.TemplateRecord), string(domain.TemplateLegacy))
	if (c.Records.Source == "file" || c.Records.Source == "sqlite") && c.Records.Path == "" {
		errs = append(errs, fmt.Errorf("records.path is required for source %q", c.Records.Source))
	}
	if c.Records.Source == "neo4j" && c.Records.Neo4j.URL == "" {
		errs = append(errs, errors.New("records.neo4j.url is required for source \"neo4j\""))
	}
	return errors.Join(errs...)
}

// setSlog installs the default logger. Verbosity 0 logs warnings and errors,
// 1 adds info and 2 or more adds debug.
func setSlog(verbosity int, format string) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity >= 2:
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(os.Stderr, opts)
	if format == "text" {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
