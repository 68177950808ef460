// Package tesseract recognizes plate text with the local Tesseract engine.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/engine/recognize"
)

// client is the subset of *gosseract.Client the engine needs.
type client interface {
	SetLanguage(langs ...string) error
	SetImageFromBytes(data []byte) error
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// Engine reads images through an ObjectReader and runs Tesseract on them.
// Lines are reported before words.
type Engine struct {
	objects       recognize.ObjectReader
	languages     []string
	clientFactory func() client
}

// Compile-time interface check.
var _ recognize.Recognizer = (*Engine)(nil)

// New constructs a Tesseract-backed recognizer.
func New(objects recognize.ObjectReader, languages ...string) *Engine {
	return &Engine{
		objects:       objects,
		languages:     languages,
		clientFactory: func() client { return gosseract.NewClient() },
	}
}

// Recognize performs OCR on the image at ref.
func (e *Engine) Recognize(ctx context.Context, ref domain.ImageRef) ([]domain.TextFragment, error) {
	data, err := e.objects.ReadObject(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	lines, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}
	words, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}

	out := make([]domain.TextFragment, 0, len(lines)+len(words))
	out = appendBoxes(out, lines, domain.FragmentLine)
	out = appendBoxes(out, words, domain.FragmentWord)
	return out, nil
}

func appendBoxes(out []domain.TextFragment, boxes []gosseract.BoundingBox, kind string) []domain.TextFragment {
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		out = append(out, domain.TextFragment{
			Text:       text,
			Confidence: recognize.Percent(b.Confidence),
			Geometry:   geometry(b.Box),
			Kind:       kind,
		})
	}
	return out
}

// geometry reports the box in pixels; Tesseract does not know the page size
// once the image is released.
func geometry(r image.Rectangle) *domain.Geometry {
	return &domain.Geometry{
		Left:   float64(r.Min.X),
		Top:    float64(r.Min.Y),
		Width:  float64(r.Dx()),
		Height: float64(r.Dy()),
	}
}
