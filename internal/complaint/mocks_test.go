package complaint_test

import (
	"context"

	"wastewatch/backend/internal/models"
	"wastewatch/backend/internal/segmentation"

	"github.com/stretchr/testify/mock"
)

// MockSegmenter is a testify mock of segmentation.Segmenter.
type MockSegmenter struct {
	mock.Mock
}

func (m *MockSegmenter) Segment(ctx context.Context, image []byte) (segmentation.Result, error) {
	args := m.Called(ctx, image)
	return args.Get(0).(segmentation.Result), args.Error(1)
}

// MockSink is a testify mock of complaint.EventSink.
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Publish(ctx context.Context, event models.ComplaintEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// eventOfType matches a ComplaintEvent by type and image id.
func eventOfType(eventType, imageID string) interface{} {
	return mock.MatchedBy(func(ev models.ComplaintEvent) bool {
		return ev.Type == eventType && ev.Complaint.ImageID == imageID
	})
}
