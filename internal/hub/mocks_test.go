package hub_test

import (
	"context"
	"sync"

	"wastewatch/backend/internal/models"
)

type MockClient struct {
	id          string
	RecvChannel chan models.ComplaintEvent

	mu     sync.Mutex
	closed bool
}

func newMockClient(id string) *MockClient {
	return &MockClient{
		id:          id,
		RecvChannel: make(chan models.ComplaintEvent, 10),
	}
}

func (c *MockClient) GetID() string { return c.id }

func (c *MockClient) GetSendChannel() chan<- models.ComplaintEvent { return c.RecvChannel }

func (c *MockClient) Run() {}

func (c *MockClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// loopBroker echoes published events to its subscriber, like a Redis
// channel with a single instance attached.
type loopBroker struct {
	ch chan models.ComplaintEvent
}

func newLoopBroker() *loopBroker {
	return &loopBroker{ch: make(chan models.ComplaintEvent, 10)}
}

func (b *loopBroker) Publish(ctx context.Context, event models.ComplaintEvent) error {
	b.ch <- event
	return nil
}

func (b *loopBroker) Subscribe(ctx context.Context) (<-chan models.ComplaintEvent, error) {
	return b.ch, nil
}
