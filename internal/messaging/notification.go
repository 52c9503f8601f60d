package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Notification types
const (
	EventCreated          = "event.created"
	EventUpdated          = "event.updated"
	EventPublished        = "event.published"
	EventSuppliersUpdated = "suppliers.updated"
	EventDocumentUploaded = "document.uploaded"
)

// EventNotification tells downstream consumers that an event changed
type EventNotification struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ProjectID  uint      `json:"project_id"`
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEventNotification stamps a notification with a fresh id
func NewEventNotification(kind string, projectID uint, eventID, eventType, actor string, at time.Time) EventNotification {
	return EventNotification{
		ID:         uuid.NewString(),
		Type:       kind,
		ProjectID:  projectID,
		EventID:    eventID,
		EventType:  eventType,
		Actor:      actor,
		OccurredAt: at.UTC(),
	}
}
