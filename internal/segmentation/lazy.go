package segmentation

import (
	"context"
	"sync"
)

// Lazy defers building the real segmenter until the first measurement and
// then shares it between all callers. A failed build is remembered.
type Lazy struct {
	factory func() (Segmenter, error)

	once sync.Once
	seg  Segmenter
	err  error
}

func NewLazy(factory func() (Segmenter, error)) *Lazy {
	return &Lazy{factory: factory}
}

// Get returns the shared segmenter, building it on first use.
func (l *Lazy) Get() (Segmenter, error) {
	l.once.Do(func() {
		l.seg, l.err = l.factory()
	})
	return l.seg, l.err
}

func (l *Lazy) Segment(ctx context.Context, image []byte) (Result, error) {
	seg, err := l.Get()
	if err != nil {
		return Result{}, err
	}
	return seg.Segment(ctx, image)
}
