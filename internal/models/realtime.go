package models

import "time"

const (
	EventComplaintCreated  = "complaint_created"
	EventComplaintResolved = "complaint_resolved"
)

// ComplaintEvent is pushed to dashboards, the message bus and the authority bot
// whenever a complaint is created or resolved.
type ComplaintEvent struct {
	Type      string          `json:"type"` // "complaint_created", "complaint_resolved"
	Complaint ComplaintRecord `json:"complaint"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewComplaintEvent stamps an event with the current time.
func NewComplaintEvent(eventType string, c ComplaintRecord) ComplaintEvent {
	return ComplaintEvent{
		Type:      eventType,
		Complaint: c,
		Timestamp: time.Now().UTC(),
	}
}
