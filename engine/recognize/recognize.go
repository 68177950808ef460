// Package recognize turns a stored image into text fragments. Backends wrap a
// local Tesseract engine or a remote text-detection service.
package recognize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

// Recognizer extracts text fragments from the image at ref.
type Recognizer interface {
	Recognize(ctx context.Context, ref domain.ImageRef) ([]domain.TextFragment, error)
}

// Func adapts an ordinary function to Recognizer.
type Func func(ctx context.Context, ref domain.ImageRef) ([]domain.TextFragment, error)

// Recognize calls f.
func (f Func) Recognize(ctx context.Context, ref domain.ImageRef) ([]domain.TextFragment, error) {
	return f(ctx, ref)
}

// Static returns the same fragments for every image.
func Static(texts ...string) Recognizer {
	return Func(func(ctx context.Context, _ domain.ImageRef) ([]domain.TextFragment, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := make([]domain.TextFragment, 0, len(texts))
		for _, t := range texts {
			out = append(out, domain.TextFragment{Text: t, Kind: domain.FragmentWord})
		}
		return out, nil
	})
}

// ObjectReader fetches the bytes of a stored object.
type ObjectReader interface {
	ReadObject(ctx context.Context, ref domain.ImageRef) ([]byte, error)
}

// DirStore serves objects from <Root>/<bucket>/<key>.
type DirStore struct {
	Root string
}

// ReadObject reads the object file. Bucket and key must stay inside Root.
func (d DirStore) ReadObject(ctx context.Context, ref domain.ImageRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel := filepath.Join(ref.Bucket, filepath.FromSlash(ref.Key))
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("recognize: object %s escapes storage root", ref)
	}
	data, err := os.ReadFile(filepath.Join(d.Root, rel))
	if err != nil {
		return nil, fmt.Errorf("recognize: read object %s: %w", ref, err)
	}
	return data, nil
}

// Percent converts a 0..100 engine score to the 0..1 range.
func Percent(score float64) *float64 {
	v := score / 100
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	return &v
}
