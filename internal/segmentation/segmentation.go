// Package segmentation is the boundary to the garbage segmentation engine.
// The engine measures how many pixels of a photo are covered by garbage and
// may return an annotated copy of the photo.
package segmentation

import (
	"context"
	"errors"
)

// ErrInvalidResponse is returned when the engine answers with something that
// cannot be used as a measurement.
var ErrInvalidResponse = errors.New("segmentation: invalid engine response")

// Result is a single measurement.
type Result struct {
	// PixelArea is zero when nothing was detected.
	PixelArea int64
	// Annotated is the encoded annotated image, or nil if the engine sent none.
	Annotated []byte
}

// Segmenter measures the garbage area on an encoded image.
type Segmenter interface {
	Segment(ctx context.Context, image []byte) (Result, error)
}

// SegmenterFunc adapts a plain function to Segmenter.
type SegmenterFunc func(ctx context.Context, image []byte) (Result, error)

func (f SegmenterFunc) Segment(ctx context.Context, image []byte) (Result, error) {
	return f(ctx, image)
}
