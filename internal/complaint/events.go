package complaint

import (
	"context"
	"errors"
	"fmt"

	"wastewatch/backend/internal/metrics"
	"wastewatch/backend/internal/models"

	"github.com/apex/log"
)

// EventSink receives a ComplaintEvent after every successful create or
// resolve. Implementations must not block for long.
type EventSink interface {
	Publish(ctx context.Context, event models.ComplaintEvent) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event models.ComplaintEvent) error

func (f EventSinkFunc) Publish(ctx context.Context, event models.ComplaintEvent) error {
	return f(ctx, event)
}

type namedSink struct {
	name string
	sink EventSink
}

// MultiSink fans an event out to several sinks. One failing sink does not
// stop the others.
type MultiSink struct {
	sinks []namedSink
}

func NewMultiSink() *MultiSink {
	return &MultiSink{}
}

// Add registers a sink; name is used in logs and metrics.
func (m *MultiSink) Add(name string, sink EventSink) {
	m.sinks = append(m.sinks, namedSink{name: name, sink: sink})
}

// Len returns the number of registered sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

func (m *MultiSink) Publish(ctx context.Context, event models.ComplaintEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.sink.Publish(ctx, event); err != nil {
			metrics.EventSinkErrors.WithLabelValues(s.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) emit(ctx context.Context, eventType string, rec models.ComplaintRecord) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, models.NewComplaintEvent(eventType, rec)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":    eventType,
			"image_id": rec.ImageID,
		}).Warn("complaint event not delivered")
	}
}
