package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// runApp executes the command line with args and returns its output.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	a, err := New()
	require.NoError(t, err, "Setup: failed to create app")
	var out bytes.Buffer
	a.cmd.SetOut(&out)
	a.cmd.SetErr(&out)
	a.cmd.SetArgs(args)
	err = a.Run()
	return out.String(), err
}

// writeConfig writes conf as a YAML config file and returns its path.
func writeConfig(t *testing.T, conf map[string]any) string {
	t.Helper()

	d, err := yaml.Marshal(conf)
	require.NoError(t, err, "Setup: failed to marshal config for tests")
	p := filepath.Join(t.TempDir(), "platealert.yaml")
	require.NoError(t, os.WriteFile(p, d, 0o600), "Setup: failed to write config for tests")
	return p
}

// staticConfig recognizes texts in every image and keeps notifications in memory.
func staticConfig(texts ...string) map[string]any {
	return map[string]any{
		"recognizer": map[string]any{"backend": "static", "statictext": texts},
		"dispatch":   map[string]any{"messenger": "memory"},
	}
}
