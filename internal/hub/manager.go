// Package hub fans complaint events out to the live authority dashboards.
// Each server instance runs one ManagerService goroutine that owns the set
// of connected clients. With Redis configured, events travel through a
// pub/sub channel so every instance delivers them to its own clients.
package hub

import (
	"context"
	"sync/atomic"

	"wastewatch/backend/internal/metrics"
	"wastewatch/backend/internal/models"

	"github.com/apex/log"
)

// ManagerService owns the connected dashboard clients.
type ManagerService struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	BroadcastCh  chan models.ComplaintEvent

	// Broker is nil when events stay on this instance.
	Broker Broker

	brokerDown atomic.Bool
	done       chan struct{}
}

func NewManagerService(broker Broker) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		BroadcastCh:  make(chan models.ComplaintEvent, 64),
		Broker:       broker,
		done:         make(chan struct{}),
	}
}

// Run dispatches until ctx is cancelled, then closes every client.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)

	if m.Broker != nil {
		go m.listen(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for id, client := range m.Clients {
				client.Close()
				delete(m.Clients, id)
			}
			metrics.DashboardClients.Set(0)
			log.Info("dashboard hub stopped")
			return

		case client := <-m.RegisterCh:
			m.Clients[client.GetID()] = client
			metrics.DashboardClients.Set(float64(len(m.Clients)))
			log.WithField("client", client.GetID()).Debug("dashboard client connected")

		case client := <-m.UnregisterCh:
			m.remove(client.GetID())

		case event := <-m.BroadcastCh:
			m.broadcast(event)
		}
	}
}

func (m *ManagerService) remove(id string) {
	client, ok := m.Clients[id]
	if !ok {
		return
	}
	delete(m.Clients, id)
	client.Close()
	metrics.DashboardClients.Set(float64(len(m.Clients)))
	log.WithField("client", id).Debug("dashboard client disconnected")
}

func (m *ManagerService) broadcast(event models.ComplaintEvent) {
	for id, client := range m.Clients {
		select {
		case client.GetSendChannel() <- event:
		default:
			// Slow consumer; the dashboard reloads on reconnect.
			log.WithField("client", id).Warn("dashboard client too slow, dropping it")
			m.remove(id)
		}
	}
}

// Register adds a client unless the hub has stopped.
func (m *ManagerService) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

// Unregister removes a client; it does not block after the hub stopped.
func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// Publish implements the complaint event sink. With a broker the event goes
// through it and comes back via the subscription; otherwise it is queued
// for local delivery.
func (m *ManagerService) Publish(ctx context.Context, event models.ComplaintEvent) error {
	if m.Broker == nil || m.brokerDown.Load() {
		return m.enqueue(ctx, event)
	}
	if err := m.Broker.Publish(ctx, event); err != nil {
		// Local dashboards still get the event.
		_ = m.enqueue(ctx, event)
		return err
	}
	return nil
}

func (m *ManagerService) enqueue(ctx context.Context, event models.ComplaintEvent) error {
	select {
	case m.BroadcastCh <- event:
		return nil
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *ManagerService) listen(ctx context.Context) {
	events, err := m.Broker.Subscribe(ctx)
	if err != nil {
		log.WithError(err).Error("dashboard hub: subscribe failed, events stay local")
		m.brokerDown.Store(true)
		return
	}
	for event := range events {
		if err := m.enqueue(ctx, event); err != nil {
			return
		}
	}
}
