package notifications

import (
	"encoding/json"
	"time"
)

// Event types delivered to lifecycle subscribers.
const (
	EventApplicationSubmitted     = "application.submitted"
	EventApplicationApproved      = "application.approved"
	EventApplicationRejected      = "application.rejected"
	EventApplicationWithdrawn     = "application.withdrawn"
	EventBackgroundCheckCompleted = "application.background_check_completed"
	EventLeaseCreated             = "lease.created"
	EventLeaseStatusChanged       = "lease.status_changed"
	EventLeaseTerminated          = "lease.terminated"
	EventLeaseRenewed             = "lease.renewed"
	EventLeaseExpired             = "lease.expired"
	EventPaymentRequested         = "payment.requested"
	EventPaymentSettled           = "payment.settled"
	EventMaintenanceStatusChanged = "maintenance.status_changed"
)

// Event is the JSON envelope pushed to a user's channel.
type Event struct {
	Type       string         `json:"type"`
	Entity     string         `json:"entity"`
	EntityID   uint           `json:"entity_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType, entity string, id uint, data map[string]any) Event {
	return Event{
		Type:       eventType,
		Entity:     entity,
		EntityID:   id,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// Encode renders the event as a wire payload.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
