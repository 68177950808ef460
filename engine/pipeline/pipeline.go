// Package pipeline runs one storage event through text recognition, plate
// extraction, owner lookup and notification dispatch.
//
// Only the first record of an event is handled unless Options.AllRecords is
// set. Hits within a record are handled one after another in the order the
// recognizer reported them; a failed lookup or dispatch is logged and the
// next hit still runs. Only recognition failures are returned to the caller.
//
// A matched record whose make disagrees with the vehicle named in the image
// text is still notified, but the mismatch is logged and counted since it
// usually means the plate was misread.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/engine/plate"
	"github.com/WessleyAI/wessley-plates/engine/recognize"
	"github.com/WessleyAI/wessley-plates/pkg/fn"
	"github.com/WessleyAI/wessley-plates/pkg/resilience"
	"github.com/WessleyAI/wessley-plates/pkg/vehiclenlp"
)

// StatusProcessed is returned for every event whose image was recognized.
const StatusProcessed = "processed"

// Lookup resolves a plate to its vehicle record.
type Lookup interface {
	FindByPlate(ctx context.Context, plate string) (domain.VehicleRecord, error)
}

// Notifier sends one message to one contact.
type Notifier interface {
	Dispatch(ctx context.Context, contact, message string) (string, error)
}

// Deps holds the collaborators of the pipeline.
type Deps struct {
	Recognizer recognize.Recognizer
	// Breaker, if set, guards recognition. Calls that run past
	// Options.RecognizeTimeout count as failures.
	Breaker    *resilience.Breaker
	Records    Lookup
	Notifier   Notifier
	Metrics    *Metrics
	Logger     *slog.Logger
}

// Options tunes event handling.
type Options struct {
	// AllRecords handles every record in the event instead of only the first.
	AllRecords bool
	// Template selects the notification text.
	Template domain.MessageTemplate
	// RecognizeTimeout bounds the recognizer call. Zero means no bound beyond
	// the caller's context.
	RecognizeTimeout time.Duration
	// BucketOverride, when set, replaces the bucket named by the event.
	BucketOverride string
}

// DefaultOptions provides sensible defaults.
var DefaultOptions = Options{
	Template:         domain.TemplateRecord,
	RecognizeTimeout: 30 * time.Second,
}

// Pipeline is safe for concurrent Handle calls.
type Pipeline struct {
	deps    Deps
	opts    Options
	log     *slog.Logger
	metrics *Metrics
	extract fn.Stage[domain.ImageRef, scan]
	notify  fn.Stage[hit, string]
}

// scan is what one image yielded.
type scan struct {
	plates   []string
	vehicles []vehiclenlp.Mention
}

// hit is one plate candidate found in an image.
type hit struct {
	ref      domain.ImageRef
	plate    string
	vehicles []vehiclenlp.Mention
}

// New wires a pipeline.
func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Recognizer == nil || deps.Records == nil || deps.Notifier == nil {
		return nil, errors.New("pipeline: recognizer, records and notifier are required")
	}
	if opts.Template == "" {
		opts.Template = DefaultOptions.Template
	}
	if !domain.ValidTemplate(opts.Template) {
		return nil, fmt.Errorf("pipeline: unknown message template %q", opts.Template)
	}
	if opts.RecognizeTimeout < 0 {
		return nil, fmt.Errorf("pipeline: negative recognize timeout %s", opts.RecognizeTimeout)
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = NewMetrics(nil)
	}

	p := &Pipeline{deps: deps, opts: opts, log: log, metrics: m}

	// Recognize → Classify. Classification cannot fail, so any error out of
	// extract is a recognition error.
	var recognizeStage fn.Stage[domain.ImageRef, []domain.TextFragment] = p.recognize
	if deps.Breaker != nil {
		recognizeStage = resilience.BreakerStage(deps.Breaker, recognizeStage)
	}
	recognized := fn.TracedStage("pipeline.recognize", recognizeStage, imageAttrs)
	classified := fn.TracedStage("pipeline.classify", fn.MapStage(classify))
	p.extract = fn.Then(recognized, classified)
	p.notify = fn.TracedStage("pipeline.notify", p.resolveAndDispatch, func(h hit) []attribute.KeyValue {
		return append(imageAttrs(h.ref), attribute.String("plate", h.plate))
	})
	return p, nil
}

// Handle processes ev and returns StatusProcessed, or "" with a nil error for
// an event with no records.
func (p *Pipeline) Handle(ctx context.Context, ev domain.StorageEvent) (string, error) {
	if len(ev.Records) == 0 {
		p.log.Debug("pipeline: empty event")
		return "", nil
	}
	p.metrics.Events.Inc()

	records := ev.Records[:1]
	if p.opts.AllRecords {
		records = ev.Records
	} else if len(ev.Records) > 1 {
		p.log.Warn("pipeline: ignoring extra records", "count", len(ev.Records)-1)
	}

	var errs []error
	for _, rec := range records {
		if err := p.handleRecord(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
		return StatusProcessed, nil
	case 1:
		return "", errs[0]
	default:
		return "", errors.Join(errs...)
	}
}

func (p *Pipeline) handleRecord(ctx context.Context, rec domain.StorageEventRecord) error {
	ref := rec.ImageRef()
	if p.opts.BucketOverride != "" {
		ref.Bucket = p.opts.BucketOverride
	}

	var found scan
	err := domain.ValidateImageRef(ref)
	if err == nil {
		start := time.Now()
		found, err = p.extract(ctx, ref).Unwrap()
		p.metrics.RecognizeDuration.Since(start)
	}
	if err != nil {
		p.metrics.RecognitionFailures.Inc()
		p.log.Error("pipeline: text recognition failed",
			"bucket", ref.Bucket,
			"key", ref.Key,
			"error", err,
		)
		return &domain.RecognitionError{Bucket: ref.Bucket, Key: ref.Key, Err: err}
	}

	p.metrics.Candidates.Add(int64(len(found.plates)))
	p.log.Info("pipeline: image recognized", "bucket", ref.Bucket, "key", ref.Key, "candidates", len(found.plates))

	for _, pl := range found.plates {
		if ctx.Err() != nil {
			// Remaining hits are dropped; the image itself was recognized.
			p.log.Warn("pipeline: context done, skipping remaining hits", "error", ctx.Err())
			break
		}
		_ = p.notify(ctx, hit{ref: ref, plate: pl, vehicles: found.vehicles})
	}
	p.metrics.Processed.Inc()
	return nil
}

func (p *Pipeline) recognize(ctx context.Context, ref domain.ImageRef) fn.Result[[]domain.TextFragment] {
	if p.opts.RecognizeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RecognizeTimeout)
		defer cancel()
	}
	return fn.FromPair(p.deps.Recognizer.Recognize(ctx, ref))
}

func imageAttrs(ref domain.ImageRef) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("image.bucket", ref.Bucket),
		attribute.String("image.key", ref.Key),
	}
}

func classify(frags []domain.TextFragment) scan {
	texts := fn.Map(frags, func(f domain.TextFragment) string { return f.Text })
	return scan{plates: plate.Candidates(frags), vehicles: vehiclenlp.Find(texts...)}
}

// resolveAndDispatch handles one hit. Every failure is logged and counted
// here; the returned result only feeds the trace span.
func (p *Pipeline) resolveAndDispatch(ctx context.Context, h hit) fn.Result[string] {
	rec, err := p.deps.Records.FindByPlate(ctx, h.plate)
	if errors.Is(err, domain.ErrRecordNotFound) {
		p.metrics.LookupMisses.Inc()
		p.log.Info("pipeline: no registered owner", "plate", h.plate, "key", h.ref.Key)
		return fn.Err[string](err)
	}
	if err != nil {
		p.metrics.LookupErrors.Inc()
		p.log.Error("pipeline: owner lookup failed", "plate", h.plate, "error", err)
		return fn.Err[string](err)
	}

	if vehiclenlp.Contradicts(rec.Make, h.vehicles) {
		p.metrics.MakeMismatches.Inc()
		p.log.Warn("pipeline: vehicle in image does not match record",
			"plate", h.plate,
			"seen", fn.Map(h.vehicles, func(m vehiclenlp.Mention) string { return m.Span }),
			"registered", rec.Make,
		)
	}

	msg := domain.BuildMessage(p.opts.Template, h.plate, rec)
	start := time.Now()
	id, err := p.deps.Notifier.Dispatch(ctx, rec.Owner.Phone, msg)
	p.metrics.DispatchDuration.Since(start)
	if err != nil {
		stage := domain.DispatchStage("unknown")
		var de *domain.DispatchError
		if errors.As(err, &de) {
			stage = de.Stage
		}
		p.metrics.DispatchFailed(stage).Inc()
		p.log.Error("pipeline: notification failed",
			"plate", h.plate,
			"stage", stage,
			"error", err,
		)
		return fn.Err[string](err)
	}

	p.metrics.Dispatched.Inc()
	p.log.Info("pipeline: notification sent", "plate", h.plate, "message_id", id)
	return fn.Ok(id)
}
