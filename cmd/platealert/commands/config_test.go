package commands

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDefaults(t *testing.T) appConfig {
	t.Helper()
	vip := viper.New()
	require.NoError(t, setDefaults(vip, defaultConfig()))
	c, err := decodeConfig(vip)
	require.NoError(t, err)
	return c
}

func TestDefaultsRoundTrip(t *testing.T) {
	c := decodeDefaults(t)
	want := defaultConfig()

	assert.Equal(t, want.NATS, c.NATS)
	assert.Equal(t, want.Dispatch, c.Dispatch)
	assert.Equal(t, want.HTTP, c.HTTP)
	assert.Equal(t, want.Records.Source, c.Records.Source)
	assert.Equal(t, want.Recognizer.Languages, c.Recognizer.Languages)
	assert.Equal(t, want.Recognizer.Breaker, c.Recognizer.Breaker)
	assert.Equal(t, "record", c.Pipeline.Template)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PLATEALERT_DISPATCH_CALLTIMEOUT", "3s")
	t.Setenv("PLATEALERT_DISPATCH_PROTOCOL", "email")
	t.Setenv("PLATEALERT_RECOGNIZER_STATICTEXT", "FORD,6TRJ244")
	t.Setenv("PLATEALERT_PIPELINE_ALLRECORDS", "true")

	a, err := New()
	require.NoError(t, err)
	require.NoError(t, a.cmd.ParseFlags(nil))
	require.NoError(t, initViperConfig(cmdName, a.cmd, a.viper))
	c, err := decodeConfig(a.viper)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, c.Dispatch.CallTimeout)
	assert.Equal(t, "email", c.Dispatch.Protocol)
	assert.Equal(t, []string{"FORD", "6TRJ244"}, c.Recognizer.StaticText)
	assert.True(t, c.Pipeline.AllRecords)
}

func TestConfigFile(t *testing.T) {
	p := writeConfig(t, map[string]any{
		"nats":     map[string]any{"url": "nats://broker:4222", "queue": "plates"},
		"dispatch": map[string]any{"topic": "Tickets", "region": "us-east-1", "ratepersecond": 2.5},
		"records":  map[string]any{"source": "file", "path": "/etc/platealert/records.yaml"},
		"storage":  map[string]any{"settle": "2s"},
	})

	a, err := New()
	require.NoError(t, err)
	require.NoError(t, a.cmd.ParseFlags([]string{"--config", p}))
	require.NoError(t, initViperConfig(cmdName, a.cmd, a.viper))
	c, err := decodeConfig(a.viper)
	require.NoError(t, err)

	assert.Equal(t, "nats://broker:4222", c.NATS.URL)
	assert.Equal(t, "plates", c.NATS.Queue)
	assert.Equal(t, "storage.events", c.NATS.Subject, "unset keys keep their default")
	assert.Equal(t, "Tickets", c.Dispatch.Topic)
	assert.Equal(t, "us-east-1", c.Dispatch.Region)
	assert.InDelta(t, 2.5, c.Dispatch.RatePerSecond, 1e-9)
	assert.Equal(t, "/etc/platealert/records.yaml", c.Records.Path)
	assert.Equal(t, 2*time.Second, c.Storage.Settle)
	assert.Equal(t, "./data", c.Storage.Root, "unset keys keep their default")
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*appConfig)
		wantErr string
	}{
		"defaults are valid": {mutate: func(*appConfig) {}},
		"unknown backend": {
			mutate:  func(c *appConfig) { c.Recognizer.Backend = "rekognition" },
			wantErr: "recognizer.backend",
		},
		"unknown protocol": {
			mutate:  func(c *appConfig) { c.Dispatch.Protocol = "fax" },
			wantErr: "dispatch.protocol",
		},
		"unknown template": {
			mutate:  func(c *appConfig) { c.Pipeline.Template = "fancy" },
			wantErr: "pipeline.template",
		},
		"sqlite without path": {
			mutate:  func(c *appConfig) { c.Records.Source = "sqlite" },
			wantErr: "records.path",
		},
		"neo4j without url": {
			mutate:  func(c *appConfig) { c.Records.Source = "neo4j" },
			wantErr: "records.neo4j.url",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := defaultConfig()
			tc.mutate(&c)
			err := c.validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRedacted(t *testing.T) {
	c := defaultConfig()
	c.Records.Neo4j.Password = "secret"
	assert.Equal(t, "***", c.redacted().Records.Neo4j.Password)
	assert.Equal(t, "secret", c.Records.Neo4j.Password, "receiver must be untouched")
}
