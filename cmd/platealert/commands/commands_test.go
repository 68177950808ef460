package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/engine/records"
)

func TestProcessObject(t *testing.T) {
	p := writeConfig(t, staticConfig("FORD", "6TRJ244", "red car"))

	out, err := runApp(t, "--config", p, "process", "licenseplates", "car.jpg")
	require.NoError(t, err)
	assert.Equal(t, "processed\n", out)
}

func TestProcessEventFile(t *testing.T) {
	p := writeConfig(t, staticConfig("7TRR812"))
	data, err := json.Marshal(domain.NewStorageEvent("licenseplates", "jeep.jpg"))
	require.NoError(t, err)
	ev := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(ev, data, 0o600))

	out, err := runApp(t, "--config", p, "process", "--event", ev)
	require.NoError(t, err)
	assert.Equal(t, "processed\n", out)
}

func TestProcessEmptyEvent(t *testing.T) {
	p := writeConfig(t, staticConfig())
	ev := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(ev, []byte(`{"Records":[]}`), 0o600))

	out, err := runApp(t, "--config", p, "process", "--event", ev)
	require.NoError(t, err)
	assert.Equal(t, "no records\n", out)
}

func TestProcessArgs(t *testing.T) {
	_, err := runApp(t, "process", "only-bucket")
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	p := writeConfig(t, staticConfig())

	out, err := runApp(t, "--config", p, "lookup", "6TRJ244")
	require.NoError(t, err)

	var rec domain.VehicleRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "fxkikomina@gmail.com", rec.Owner.Phone)
	assert.Equal(t, "Focus", rec.Model)

	_, err = runApp(t, "--config", p, "lookup", "NOPE123")
	require.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestRecordsImportThenLookup(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "records.yaml")
	data, err := records.Encode([]domain.VehicleRecord{{
		Plate: "8ABC123", Make: "Tesla", Model: "Model 3", Color: "White",
		Owner: domain.OwnerContact{Name: "Ada", Phone: "+15550001111"},
	}}, records.FormatYAML)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(doc, data, 0o600))
	db := filepath.Join(dir, "records.db")

	out, err := runApp(t, "records", "import", doc, db)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 records")

	conf := staticConfig()
	conf["records"] = map[string]any{"source": "sqlite", "path": db}
	p := writeConfig(t, conf)

	out, err = runApp(t, "--config", p, "lookup", "8ABC123")
	require.NoError(t, err)
	assert.Contains(t, out, "+15550001111")
}

func TestRecordsExport(t *testing.T) {
	p := writeConfig(t, staticConfig())

	out, err := runApp(t, "--config", p, "records", "export", "--format", "yaml")
	require.NoError(t, err)
	recs, err := records.Decode([]byte(out), records.FormatYAML)
	require.NoError(t, err)
	assert.Len(t, recs, 5)

	_, err = runApp(t, "--config", p, "records", "export", "--format", "csv")
	require.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	p := writeConfig(t, map[string]any{"recognizer": map[string]any{"backend": "rekognition"}})

	_, err := runApp(t, "--config", p, "lookup", "6TRJ244")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recognizer.backend")
}
