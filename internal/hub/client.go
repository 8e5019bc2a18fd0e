package hub

import "wastewatch/backend/internal/models"

// Client is one live dashboard connection. It abstracts the transport so the
// hub can be driven without a real websocket.
type Client interface {
	// GetID returns the connection identifier, unique per hub.
	GetID() string
	// GetSendChannel returns the channel the hub delivers events to.
	GetSendChannel() chan<- models.ComplaintEvent
	// Run starts the client's pumps.
	Run()
	// Close shuts down the client; the hub calls it once after unregistering.
	Close()
}
