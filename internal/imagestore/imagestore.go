// Package imagestore keeps the photos behind each complaint: the uploaded
// input image and the annotated output image.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"wastewatch/backend/internal/config"
)

// Kind selects which of a complaint's images is addressed.
type Kind string

const (
	KindInput  Kind = "input"
	KindOutput Kind = "output"
)

var (
	ErrNotFound    = errors.New("image not found")
	ErrInvalidKind = errors.New("invalid image kind")
	ErrInvalidID   = errors.New("invalid image id")
)

// ParseKind validates a kind taken from a URL or flag.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindInput, KindOutput:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Store persists images addressed by kind and image id.
type Store interface {
	Save(ctx context.Context, kind Kind, imageID string, data []byte) error
	// Open returns ErrNotFound when the image does not exist.
	Open(ctx context.Context, kind Kind, imageID string) (io.ReadCloser, error)
	// Delete is a no-op for missing images.
	Delete(ctx context.Context, kind Kind, imageID string) error
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.Images) (Store, error) {
	switch cfg.Driver {
	case config.ImagesDisk, "":
		return NewDiskStore(cfg.InputDir, cfg.OutputDir)
	case config.ImagesS3:
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown images driver %q", cfg.Driver)
	}
}

func fileName(imageID string) string {
	return imageID + ".jpg"
}

// validID rejects ids that could escape the image directory or bucket prefix.
func validID(imageID string) error {
	if imageID == "" || len(imageID) > 64 {
		return ErrInvalidID
	}
	for _, r := range imageID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ErrInvalidID
		}
	}
	return nil
}
