package pipeline

import (
	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/pkg/metrics"
)

// Metrics are the pipeline counters and timings.
type Metrics struct {
	reg *metrics.Registry

	Events              *metrics.Counter
	Processed           *metrics.Counter
	RecognitionFailures *metrics.Counter
	Candidates          *metrics.Counter
	LookupMisses        *metrics.Counter
	LookupErrors        *metrics.Counter
	Dispatched          *metrics.Counter
	MakeMismatches      *metrics.Counter

	RecognizeDuration *metrics.Histogram
	DispatchDuration  *metrics.Histogram
}

// NewMetrics registers the pipeline metrics on reg, or on a private registry
// when reg is nil.
func NewMetrics(reg *metrics.Registry) *Metrics {
	if reg == nil {
		reg = metrics.New()
	}
	return &Metrics{
		reg:                 reg,
		Events:              reg.Counter("platealert_events_total", "Storage events with at least one record."),
		Processed:           reg.Counter("platealert_records_processed_total", "Event records whose image was recognized."),
		RecognitionFailures: reg.Counter("platealert_recognition_failures_total", "Event records whose image could not be recognized."),
		Candidates:          reg.Counter("platealert_plate_candidates_total", "Plate-like tokens extracted from recognized text."),
		LookupMisses:        reg.Counter("platealert_lookup_misses_total", "Plate candidates with no registered owner."),
		LookupErrors:        reg.Counter("platealert_lookup_errors_total", "Owner lookups that failed."),
		Dispatched:          reg.Counter("platealert_notifications_sent_total", "Notifications accepted by the messaging service."),
		MakeMismatches:      reg.Counter("platealert_make_mismatches_total", "Matched records whose make differs from the vehicle named in the image."),
		RecognizeDuration:   reg.Histogram("platealert_recognize_duration_seconds", "Text recognition latency.", nil),
		DispatchDuration:    reg.Histogram("platealert_dispatch_duration_seconds", "Subscribe plus publish latency.", nil),
	}
}

// DispatchFailed returns the failure counter for stage.
func (m *Metrics) DispatchFailed(stage domain.DispatchStage) *metrics.Counter {
	return m.reg.Counter(
		metrics.WithLabels("platealert_notification_failures_total", "stage", string(stage)),
		"Notifications that failed, by dispatch stage.",
	)
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *metrics.Registry { return m.reg }
