package records

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

//go:embed sample.xml
var sampleDocument []byte

// Format is the encoding of a record document.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a Format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("records: unsupported document extension %q", filepath.Ext(path))
	}
}

// xmlDatabase is the <database><vehicle>...</vehicle></database> layout.
type xmlDatabase struct {
	XMLName  xml.Name               `xml:"database"`
	Vehicles []domain.VehicleRecord `xml:"vehicle"`
}

// yamlDatabase is the YAML equivalent: a top-level "vehicles" list.
type yamlDatabase struct {
	Vehicles []domain.VehicleRecord `yaml:"vehicles"`
}

// DocumentSource reads records from a structured document, either held in
// memory or read from a file on every Records call.
type DocumentSource struct {
	path   string
	data   []byte
	format Format
}

// NewDocumentSource serves records decoded from data.
func NewDocumentSource(data []byte, format Format) *DocumentSource {
	return &DocumentSource{data: data, format: format}
}

// NewFileSource serves records from the document at path. The format comes
// from the file extension.
func NewFileSource(path string) (*DocumentSource, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &DocumentSource{path: path, format: f}, nil
}

// SampleSource serves the built-in five vehicle sample set.
func SampleSource() *DocumentSource {
	return NewDocumentSource(sampleDocument, FormatXML)
}

// Records decodes the document.
func (d *DocumentSource) Records(_ context.Context) ([]domain.VehicleRecord, error) {
	data := d.data
	if d.path != "" {
		b, err := os.ReadFile(d.path)
		if err != nil {
			return nil, fmt.Errorf("records: read %s: %w", d.path, err)
		}
		data = b
	}
	return Decode(data, d.format)
}

// Decode parses a record document in the given format.
func Decode(data []byte, format Format) ([]domain.VehicleRecord, error) {
	switch format {
	case FormatXML:
		var db xmlDatabase
		if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&db); err != nil {
			return nil, fmt.Errorf("records: decode xml: %w", err)
		}
		return db.Vehicles, nil
	case FormatYAML:
		var db yamlDatabase
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&db); err != nil {
			return nil, fmt.Errorf("records: decode yaml: %w", err)
		}
		return db.Vehicles, nil
	default:
		return nil, fmt.Errorf("records: unknown format %q", format)
	}
}

// Encode renders records as a document in the given format.
func Encode(recs []domain.VehicleRecord, format Format) ([]byte, error) {
	switch format {
	case FormatXML:
		out, err := xml.MarshalIndent(xmlDatabase{Vehicles: recs}, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("records: encode xml: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		out, err := yaml.Marshal(yamlDatabase{Vehicles: recs})
		if err != nil {
			return nil, fmt.Errorf("records: encode yaml: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("records: unknown format %q", format)
	}
}
