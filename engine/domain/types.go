// Package domain defines the core types, errors and validation shared by the
// plate notification pipeline: recognized text, vehicle records, owner
// contacts and storage events.
package domain

import "strings"

// Fragment kinds reported by recognizers that distinguish lines from words.
const (
	FragmentLine = "LINE"
	FragmentWord = "WORD"
)

// Geometry is the bounding box of a recognized fragment in the units the
// recognizer reports (ratios for remote detection, pixels for Tesseract).
type Geometry struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextFragment is one item returned by a recognizer. Only Text drives decisions.
type TextFragment struct {
	Text       string    `json:"text"`
	Confidence *float64  `json:"confidence,omitempty"`
	Geometry   *Geometry `json:"geometry,omitempty"`
	Kind       string    `json:"kind,omitempty"`
}

// OwnerContact identifies who to notify. Phone doubles as the messaging
// endpoint and may hold either a phone number or an email address.
type OwnerContact struct {
	Name  string `json:"name" xml:"name" yaml:"name"`
	Phone string `json:"phone" xml:"phone" yaml:"phone"`
}

// VehicleRecord maps a plate to a vehicle description and its owner.
type VehicleRecord struct {
	Plate string       `json:"plate" xml:"plate" yaml:"plate"`
	Make  string       `json:"make" xml:"make" yaml:"make"`
	Model string       `json:"model" xml:"model" yaml:"model"`
	Color string       `json:"color" xml:"color" yaml:"color"`
	Owner OwnerContact `json:"owner" xml:"owner" yaml:"owner"`
}

// Description renders "Color Make Model", skipping empty fields.
func (v VehicleRecord) Description() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{v.Color, v.Make, v.Model} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ImageRef points the recognizer at one stored object. No bytes are moved by
// the pipeline itself.
type ImageRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (r ImageRef) String() string { return r.Bucket + "/" + r.Key }

// StorageEvent is an object-storage change notification in the S3 event
// JSON shape.
type StorageEvent struct {
	Records []StorageEventRecord `json:"Records"`
}

// StorageEventRecord identifies exactly one uploaded object.
type StorageEventRecord struct {
	EventName string   `json:"eventName,omitempty"`
	S3        S3Entity `json:"s3"`
}

// S3Entity carries the bucket and object of a record.
type S3Entity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

// S3Bucket is the bucket section of an event record.
type S3Bucket struct {
	Name string `json:"name"`
}

// S3Object is the object section of an event record.
type S3Object struct {
	Key  string `json:"key"`
	Size int64  `json:"size,omitempty"`
}

// NewStorageEvent builds a single-record event for bucket/key.
func NewStorageEvent(bucket, key string) StorageEvent {
	return StorageEvent{Records: []StorageEventRecord{{
		EventName: "ObjectCreated:Put",
		S3: S3Entity{
			Bucket: S3Bucket{Name: bucket},
			Object: S3Object{Key: key},
		},
	}}}
}

// BucketName returns the record's bucket name.
func (r StorageEventRecord) BucketName() string { return r.S3.Bucket.Name }

// ObjectKey returns the record's object key.
func (r StorageEventRecord) ObjectKey() string { return r.S3.Object.Key }

// ImageRef converts the record into a recognizer reference.
func (r StorageEventRecord) ImageRef() ImageRef {
	return ImageRef{Bucket: r.BucketName(), Key: r.ObjectKey()}
}

// Protocol is the channel kind used when subscribing an endpoint.
type Protocol string

const (
	ProtocolSMS   Protocol = "sms"
	ProtocolEmail Protocol = "email"
)

// ValidProtocols is the set of supported channel kinds.
var ValidProtocols = map[Protocol]bool{
	ProtocolSMS:   true,
	ProtocolEmail: true,
}
